package main

import "github.com/mcoot/shapesync/internal/cli"

func main() {
	cli.Execute()
}
