package main

import (
	"os"

	"mgapi/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
