package main

import (
	"os"

	"github.com/albertocavalcante/cix/internal/cmd/cixls"
)

func main() {
	os.Exit(cixls.Run(os.Args[1:]))
}
