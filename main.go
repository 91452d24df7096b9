package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"cross-swap/cmd"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
