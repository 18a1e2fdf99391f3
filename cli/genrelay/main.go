package main

import (
	"os"

	genrelaycmder "github.com/papercomputeco/genrelay/cmd/genrelay"
)

func main() {
	cmd := genrelaycmder.NewGenrelayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
