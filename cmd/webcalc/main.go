package main

import (
	"os"

	"github.com/y-hirakaw/webcalc/internal/cli"
)

func main() {
	app := cli.NewApp()
	os.Exit(app.Run(os.Args))
}
