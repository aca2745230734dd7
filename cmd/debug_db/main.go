package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/options_alerts/internal/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", "alerts.db", "sqlite database path")
	limit := flag.Int("limit", 20, "number of recent alerts to show")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	alerts, err := store.ListAlerts(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list alerts: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d alerts:\n", len(alerts))
	for _, a := range alerts {
		fmt.Printf("- %s %s %s %s score=%.0f risk=%.2f%% status=%s\n",
			a.CreatedAt, a.Ticker, a.Kind, a.Direction, a.Score, a.RiskFraction*100, a.Status)
		if a.Size != nil {
			fmt.Printf("  size: %d contracts, max loss $%.2f\n", a.Size.Contracts, a.Size.MaxLoss)
		} else {
			fmt.Printf("  size: not sized\n")
		}
	}

	positions, err := store.ListOpenPositions(ctx)
	if err != nil {
		fmt.Printf("Failed to list positions: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nFound %d open positions:\n", len(positions))
	for _, p := range positions {
		fmt.Printf("- %s %s %s basis=%.2f x%d exp=%s\n",
			p.TradeID, p.Ticker, p.StrategyType, p.Basis(), p.Contracts, p.Expiration.Format("2006-01-02"))
	}
}
