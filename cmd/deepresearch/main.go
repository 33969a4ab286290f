package main

import (
	"os"

	"github.com/SwaroopMeher/deep-research-agent/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
