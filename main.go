package main

import "github.com/jsphweid/rollindex/cmd"

func main() {
	cmd.Execute()
}
