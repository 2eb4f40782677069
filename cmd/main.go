package main

import (
	"log"

	"github.com/donaldmo/pandopot-api/internal/app"
	"github.com/donaldmo/pandopot-api/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Run()
}
