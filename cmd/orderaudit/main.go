package main

import "github.com/jlenoir/go-order-audit/internal/cli"

func main() {
	cli.Execute()
}
