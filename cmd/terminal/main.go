package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"grosirpos/internal/cache"
	"grosirpos/internal/config"
	"grosirpos/internal/domain"
	"grosirpos/internal/service"
	"grosirpos/internal/store"
	"grosirpos/internal/store/memory"
	pgstore "grosirpos/internal/store/postgres"
)

// The cashier terminal runs against the service layer directly. It hosts the
// same sales-screen session the HTTP API exposes, so the keyboard contract is
// identical to the browser front end.
func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable: %v", err)
		}
		defer pg.Close()
		repo = pg
	} else {
		repo = memory.NewSeeded()
	}

	svc := service.New(
		repo,
		cache.NoopCatalogCache{},
		cfg.StoreID,
		cfg.CatalogPageSize,
		time.Duration(cfg.CatalogTTLSeconds)*time.Second,
		time.Duration(cfg.SessionTTLMinutes)*time.Minute,
	)

	username := os.Getenv("TERMINAL_USER")
	if username == "" {
		username = "cashier"
	}
	terminalID := os.Getenv("TERMINAL_ID")
	if terminalID == "" {
		terminalID = "terminal-1"
	}
	actorCtx := service.WithActor(context.Background(), domain.Actor{Username: username, Role: "cashier"})

	program := tea.NewProgram(newModel(actorCtx, svc, terminalID), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "terminal error: %v\n", err)
		os.Exit(1)
	}
}
