package main

import (
	"os"

	newscusscmder "github.com/newscuss/newscuss/cmd/newscuss"
)

func main() {
	cmd := newscusscmder.NewNewscussCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
