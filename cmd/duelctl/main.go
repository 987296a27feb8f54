package main

import "github.com/duelpit/duelserver/internal/cli"

func main() {
	cli.Execute()
}
