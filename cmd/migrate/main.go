// Command migrate applies the database schema without starting the server.
package main

import (
	"log"

	"github.com/mifthebest/hw05-final/internal/config"
	"github.com/mifthebest/hw05-final/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration complete")
}
