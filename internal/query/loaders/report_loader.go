package loaders

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const maxReportBatch = 100

type ctxKey string

const reportLoaderKey ctxKey = "report_loader"

// ReportLoader batches report lookups by ID into GetByIDs calls
type ReportLoader struct {
	loader *dataloader.Loader[string, *entities.MedicalReport]
}

// NewReportLoader creates a loader. Create one per request so cached results
// never outlive it.
func NewReportLoader(repo repositories.MedicalReportRepository) *ReportLoader {
	batch := func(ctx context.Context, keys []string) []*dataloader.Result[*entities.MedicalReport] {
		results := make([]*dataloader.Result[*entities.MedicalReport], len(keys))
		reports, err := repo.GetByIDs(ctx, keys)

		byID := make(map[string]*entities.MedicalReport, len(reports))
		if err == nil {
			for _, r := range reports {
				byID[r.ID] = r
			}
		}

		for i, key := range keys {
			switch r, ok := byID[key]; {
			case err != nil:
				results[i] = &dataloader.Result[*entities.MedicalReport]{Error: err}
			case ok:
				results[i] = &dataloader.Result[*entities.MedicalReport]{Data: r}
			default:
				results[i] = &dataloader.Result[*entities.MedicalReport]{Error: apperrors.NewNotFoundError(fmt.Sprintf("report %s not found", key))}
			}
		}
		return results
	}

	return &ReportLoader{
		loader: dataloader.NewBatchedLoader(batch,
			dataloader.WithBatchCapacity[string, *entities.MedicalReport](maxReportBatch),
			dataloader.WithWait[string, *entities.MedicalReport](2*time.Millisecond),
		),
	}
}

// Load returns a single report
func (l *ReportLoader) Load(ctx context.Context, id string) (*entities.MedicalReport, error) {
	return l.loader.Load(ctx, id)()
}

// LoadMany returns reports in the order of ids. errs is nil when every id
// loaded, otherwise errs[i] holds the failure for ids[i].
func (l *ReportLoader) LoadMany(ctx context.Context, ids []string) ([]*entities.MedicalReport, []error) {
	return l.loader.LoadMany(ctx, ids)()
}

// For returns the loader attached to ctx, or nil
func For(ctx context.Context) *ReportLoader {
	l, _ := ctx.Value(reportLoaderKey).(*ReportLoader)
	return l
}

// WithReportLoader returns a new context with the loader attached
func WithReportLoader(ctx context.Context, l *ReportLoader) context.Context {
	return context.WithValue(ctx, reportLoaderKey, l)
}
