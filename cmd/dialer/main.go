package main

import (
	"os"

	"github.com/grez-lucas/dialer-helper/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
