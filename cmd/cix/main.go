package main

import (
	"os"

	"github.com/albertocavalcante/cix/internal/cmd/cix"
)

func main() {
	os.Exit(cix.Run(os.Args[1:]))
}
