package main

import "github.com/chukul/sessionctl/cmd"

func main() {
	cmd.Execute()
}
