package main

import "github.com/grm/nightwatch/cmd"

func main() {
	cmd.Execute()
}
