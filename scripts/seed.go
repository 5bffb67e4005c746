package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/database"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/search"
	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/postgres"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/typesense"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
	"github.com/nfcure/digitaltwin/backend/pkg/config"
)

func main() {
	patientID := flag.String("patient", "demo-patient", "patient ID the sample history is stored under")
	migration := flag.String("migrate", "", "SQL file applied before seeding")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("seed", cfg.Server.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if *migration != "" {
		if err := pgClient.ApplyMigration(ctx, *migration); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migration")
		}
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating reports before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE medical_reports`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	var searchRepo repositories.ReportSearchRepository
	if tsClient, err := typesense.NewClient(&cfg.Typesense); err == nil {
		if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		searchRepo = search.NewReportSearchAdapter(tsClient)
	} else {
		log.Warn().Err(err).Msg("Typesense unavailable; seeded reports will not be searchable")
	}

	reports := services.NewReportService(database.NewMedicalReportAdapter(pgClient, nil), searchRepo, nil)

	seeded := 0
	for _, report := range services.SampleHistoricalReports(*patientID) {
		// sample IDs are display placeholders; the table keys on UUIDs
		report.ID = ""
		if err := reports.Save(ctx, report); err != nil {
			log.Error().Err(err).Str("procedure", report.Procedure).Msg("Failed to seed report")
			continue
		}
		seeded++
	}

	log.Info().Int("reports", seeded).Str("patient_id", *patientID).Msg("Seeding complete")
}
