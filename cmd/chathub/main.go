package main

import (
	"os"

	"chathub/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
