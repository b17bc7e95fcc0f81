// Package main is the entry point for cwctl, the workspace command line tool.
package main

import "github.com/capitalize-ai/supportbot-workspace/internal/cli"

func main() {
	cli.Execute()
}
