package main

import "circlehub/cmd/cli/command"

func main() {
	command.Execute()
}
