package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/poll/internal/adapters/repository/store"
	"github.com/vncsmyrnk/poll/internal/config"
)

const usage = "usage: migrations up | migrations down <name>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "up":
		// store.Open applies every pending up migration.
		st, err := store.Open(ctx, cfg, nil)
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		fmt.Println("Migrations applied successfully.")
	case "down":
		if len(os.Args) < 3 {
			log.Fatal("a migration name is required.")
		}
		st, err := store.Open(ctx, cfg, nil)
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()

		name, err := st.Rollback(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Printf("Migration %s rolled back successfully.\n", name)
	default:
		log.Fatal(usage)
	}
}
