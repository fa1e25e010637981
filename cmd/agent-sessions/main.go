// Package main provides the entry point for the agent-sessions CLI.
package main

import (
	"github.com/ovachiever/agent-sessions/cmd/agent-sessions/cmd"
)

func main() {
	cmd.Execute()
}
