package main

import (
	"os"

	"github.com/neongoby/neongoby/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
