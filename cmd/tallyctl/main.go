package main

import (
	"github.com/joho/godotenv"

	"github.com/tallyboard/lobby/internal/cli"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	cli.Execute()
}
