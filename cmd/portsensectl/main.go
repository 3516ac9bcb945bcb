package main

import (
	"os"

	"github.com/portsense/portsense/cmd/portsensectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
