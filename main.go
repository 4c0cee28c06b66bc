package main

import "github.com/soundset/datacap/cmd"

func main() {
	cmd.Execute()
}
