package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/nfcure/digitaltwin/backend/pkg/config"
	"github.com/nfcure/digitaltwin/backend/pkg/retry"
)

const (
	ReportsCollection = "medical_reports"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxTotalTimeout = 20 * time.Second
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// ReportsSchema is the collection schema for saved assessment reports
func ReportsSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: ReportsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "patient_id", Type: "string", Facet: pointer.True()},
			{Name: "procedure", Type: "string"},
			{Name: "risk_level", Type: "string", Facet: pointer.True()},
			{Name: "risk_score", Type: "int32"},
			{Name: "success_rate", Type: "int32", Facet: pointer.True()},
			{Name: "outcome", Type: "string", Facet: pointer.True()},
			{Name: "section_titles", Type: "string[]", Optional: pointer.True()},
			{Name: "full_analysis", Type: "string"},
			{Name: "date", Type: "int64"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// InitSchema ensures the reports collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == ReportsCollection {
			log.Debug().Str("collection", ReportsCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, ReportsSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", ReportsCollection).Msg("Created Typesense collection")
	return nil
}

// ResetSchema drops the reports collection and recreates it
func (c *Client) ResetSchema(ctx context.Context) error {
	if _, err := c.client.Collection(ReportsCollection).Delete(ctx); err != nil {
		log.Warn().Err(err).Str("collection", ReportsCollection).Msg("Failed to delete collection")
	}
	return c.InitSchema(ctx)
}
