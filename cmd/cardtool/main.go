package main

import "metacards/internal/cli"

func main() {
	cli.Execute()
}
