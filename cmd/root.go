package cmd

import (
	"log/slog"

	"github.com/jsphweid/rollindex/config"
	"github.com/jsphweid/rollindex/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     = config.Default()
	log     = logging.Default()
)

var rootCmd = &cobra.Command{
	Use:   "rollindex",
	Short: "Piano roll note index",
	Long: `rollindex imports MIDI files into a note store, answers time, pitch and
viewport queries over them, quantizes them and serves them for editing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		l, err := logging.New(cfg.Logging())
		if err != nil {
			return err
		}
		log = l
		slog.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
