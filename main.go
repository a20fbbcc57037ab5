package main

import "github.com/kris-hansen/dialogen/cmd"

func main() {
	cmd.Execute()
}
