package main

import (
	"os"

	"nscope/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
