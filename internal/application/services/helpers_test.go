package services_test

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

// MockAssessmentProvider is a testify mock of providers.AssessmentProvider
type MockAssessmentProvider struct {
	mock.Mock
}

func (m *MockAssessmentProvider) Name() string { return "mock" }

func (m *MockAssessmentProvider) ValidateProcedure(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssessmentProvider) AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func (m *MockAssessmentProvider) AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error) {
	args := m.Called(ctx, patientID, reports)
	return args.String(0), args.Error(1)
}

// memoryReportRepo keeps reports in memory, newest first per patient
type memoryReportRepo struct {
	mu        sync.Mutex
	byID      map[string]*entities.MedicalReport
	createErr error
	listErr   error
}

func newMemoryReportRepo() *memoryReportRepo {
	return &memoryReportRepo{byID: make(map[string]*entities.MedicalReport)}
}

func (r *memoryReportRepo) Create(ctx context.Context, report *entities.MedicalReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[report.ID] = report
	return nil
}

func (r *memoryReportRepo) GetByID(ctx context.Context, id string) (*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.byID[id]; ok {
		return report, nil
	}
	return nil, apperrors.NewNotFoundError("report not found")
}

func (r *memoryReportRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.MedicalReport
	for _, id := range ids {
		if report, ok := r.byID[id]; ok {
			out = append(out, report)
		}
	}
	return out, nil
}

func (r *memoryReportRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entities.MedicalReport
	for _, report := range r.byID {
		if report.PatientID == patientID {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryReportRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type stubSearchRepo struct {
	mu      sync.Mutex
	indexed []string
	results []*entities.MedicalReport
	params  repositories.ReportSearchParams
}

func (s *stubSearchRepo) Index(ctx context.Context, report *entities.MedicalReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, report.ID)
	return nil
}

func (s *stubSearchRepo) Search(ctx context.Context, params repositories.ReportSearchParams) ([]*entities.MedicalReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	return s.results, nil
}

// memoryCache matches DeletePattern globs the way Redis does: * spans any characters
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	re := globRegexp(pattern)
	for key := range c.data {
		if re.MatchString(key) {
			delete(c.data, key)
			c.deleted = append(c.deleted, key)
		}
	}
	return nil
}

func globRegexp(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	return regexp.MustCompile("^" + quoted + "$")
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) has(key string) bool {
	ok, _ := c.Exists(context.Background(), key)
	return ok
}

// recordingEventBus delivers published events to in-process subscribers
type recordingEventBus struct {
	mu          sync.Mutex
	published   map[string][]*entities.ReportEvent
	subscribers map[string][]chan *entities.ReportEvent
}

func newRecordingEventBus() *recordingEventBus {
	return &recordingEventBus{
		published:   make(map[string][]*entities.ReportEvent),
		subscribers: make(map[string][]chan *entities.ReportEvent),
	}
}

func (b *recordingEventBus) Publish(ctx context.Context, channel string, event *entities.ReportEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], event)
	for _, ch := range b.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *recordingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.ReportEvent, 10)
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	return ch, nil
}

func (b *recordingEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *recordingEventBus) Close() error { return nil }

func (b *recordingEventBus) events(channel string) []*entities.ReportEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.ReportEvent(nil), b.published[channel]...)
}

func (b *recordingEventBus) subscriberCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[channel])
}
