package main

import "github.com/david/eventfeed/internal/cli"

func main() {
	cli.Execute()
}
