package main

import (
	"log"

	"github.com/joho/godotenv"

	"egg-trading/cmd"
)

func main() {
	// Missing .env is fine; config falls back to real env vars.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		log.Fatalf("could not start application: %v", err)
	}
}
