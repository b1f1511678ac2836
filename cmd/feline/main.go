package main

import "github.com/OpenTraceLab/feline/cmd/feline/cmd"

func main() {
	cmd.Execute()
}
