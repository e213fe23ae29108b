package main

import "github.com/eslsoft/lexitrack/cmd"

func main() {
	cmd.Execute()
}
