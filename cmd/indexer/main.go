package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/database"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/search"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/postgres"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/typesense"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
	"github.com/nfcure/digitaltwin/backend/pkg/config"
)

const pageSize = 200

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the reports collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		var err error
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger("indexer", cfg.Server.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.ReportsCollection).Msg("Resetting reports collection")
		err = tsClient.ResetSchema(ctx)
	} else {
		err = tsClient.InitSchema(ctx)
	}
	if err != nil {
		return err
	}

	reports := database.NewMedicalReportAdapter(pgClient, nil)
	index := search.NewReportSearchAdapter(tsClient)

	indexed, failed := 0, 0
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := reports.ListAfterID(ctx, cursor, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		for _, report := range page {
			if err := index.Index(ctx, report); err != nil {
				failed++
				log.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to index report")
				continue
			}
			indexed++
		}
		cursor = page[len(page)-1].ID

		if len(page) < pageSize {
			break
		}
	}

	log.Info().Int("indexed", indexed).Int("failed", failed).Msg("Indexing complete")
	return nil
}
