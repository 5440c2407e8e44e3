package main

import "github.com/devark-dev/devark/internal/cli"

func main() {
	cli.Execute()
}
