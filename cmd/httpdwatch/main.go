package main

import (
	"os"

	"github.com/httpdwatch/httpdwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
