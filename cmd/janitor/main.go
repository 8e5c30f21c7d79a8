// Command janitor is the CLI entry point: audit a project for dead code,
// or clean it behind a test-verified mutation session.
package main

import "github.com/ghrammr/janitor/cmd"

func main() {
	cmd.Execute()
}
