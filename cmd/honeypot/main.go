package main

import (
	"os"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
