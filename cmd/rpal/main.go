// RPAL CLI - runs RPAL programs and hosts the evaluation and language servers
package main

import (
	"os"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
