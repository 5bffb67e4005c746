package routes

import (
	"net/http"

	"github.com/nfcure/digitaltwin/backend/internal/api/handlers"
	"github.com/nfcure/digitaltwin/backend/internal/api/middleware"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	healthHandler    *handlers.HealthHandler
	reportHandler    *handlers.ReportHandler
	diagnosisHandler *handlers.DiagnosisHandler
	historyHandler   *handlers.HistoryHandler
	streamHandler    *handlers.ReportStreamHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware may be nil.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	reportHandler *handlers.ReportHandler,
	diagnosisHandler *handlers.DiagnosisHandler,
	historyHandler *handlers.HistoryHandler,
	streamHandler *handlers.ReportStreamHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		healthHandler:    healthHandler,
		reportHandler:    reportHandler,
		diagnosisHandler: diagnosisHandler,
		historyHandler:   historyHandler,
		streamHandler:    streamHandler,
		cacheMiddleware:  cacheMiddleware,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Reports
	r.mux.HandleFunc("POST /api/reports/parse", r.reportHandler.ParseReport)
	r.mux.HandleFunc("POST /api/reports/export", r.reportHandler.ExportReports)
	r.mux.HandleFunc("GET /api/reports/search", r.reportHandler.SearchReports)
	r.mux.HandleFunc("GET /api/reports/{id}", r.reportHandler.GetReport)
	r.mux.HandleFunc("GET /api/reports/{id}/export", r.reportHandler.ExportReport)

	// Diagnosis
	r.mux.HandleFunc("POST /api/diagnosis/analyze", r.diagnosisHandler.Analyze)

	// Patient history
	r.mux.HandleFunc("GET /api/patients/{id}/history", r.historyHandler.GetHistory)
	r.mux.HandleFunc("GET /api/patients/{id}/history/analysis", r.historyHandler.GetAnalysis)

	// Report event streams
	r.mux.HandleFunc("GET /api/stream/reports", r.streamHandler.StreamReports)
	r.mux.HandleFunc("GET /api/stream/patients/{id}", r.streamHandler.StreamPatientReports)

	// last wrap is outermost
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache hits
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
