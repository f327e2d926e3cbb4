// Command loadcsv normalizes a price CSV and upserts it into the configured price store.
//
// Usage:
//
//	loadcsv -config configs/config.yaml -file data/oil_prices.csv
//	loadcsv -file data/oil_prices.csv -features diesel_b7
//
// With -features the derived feature table of that fuel type is summarized
// after the load.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/features"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/normalize"
	"github.com/fuelcast/fuelcast/internal/pricestore"
	"github.com/fuelcast/fuelcast/internal/services"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	file := flag.String("file", "", "CSV file to load")
	target := flag.String("features", "", "Fuel type whose derived features are summarized")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: loadcsv -config <config.yaml> -file <prices.csv>")
		os.Exit(2)
	}

	if err := run(*configPath, *file, *target); err != nil {
		fmt.Fprintf(os.Stderr, "loadcsv: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, file, target string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	store, err := pricestore.New(cfg.Store, embedder, logger)
	if err != nil {
		return fmt.Errorf("open price store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("provision collections: %w", err)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	table, err := normalize.New(logger).Normalize(raw)
	if err != nil {
		return err
	}

	resp, err := services.NewPriceService(logger, store, cfg.Store.ScanLimit, nil).Ingest(ctx, table, "Data loaded")
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d records (%s to %s): %v\n", resp.Records, resp.StartDate, resp.EndDate, resp.FuelTypes)

	if target == "" {
		return nil
	}
	return summarizeFeatures(table, target)
}

func summarizeFeatures(table *models.PriceTable, target string) error {
	ft, err := models.ParseFuelType(target)
	if err != nil {
		return err
	}
	derived, err := features.Derive(table, ft)
	if err != nil {
		return fmt.Errorf("derive features: %w", err)
	}

	fmt.Printf("Features for %s: %d rows x %d columns\n", ft, derived.Len(), len(derived.Columns))
	if derived.Len() > 0 {
		fmt.Printf("  first %s, last %s\n",
			derived.Dates[0].Format(time.DateOnly), derived.Dates[derived.Len()-1].Format(time.DateOnly))
	}
	for _, c := range derived.Columns {
		fmt.Printf("  %s\n", c)
	}
	return nil
}
