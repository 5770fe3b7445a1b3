package main

import "relocation/internal/cli"

func main() {
	cli.Execute()
}
