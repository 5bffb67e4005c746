package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
)

const heartbeatInterval = 30 * time.Second

// ReportStreamHandler pushes report events to clients over Server-Sent Events
type ReportStreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   map[string]map[chan *entities.ReportEvent]bool // channel -> clients
	mu        sync.RWMutex
}

// NewReportStreamHandler creates a new stream handler
func NewReportStreamHandler(eventBus providers.EventBus) *ReportStreamHandler {
	return &ReportStreamHandler{
		eventBus:  eventBus,
		heartbeat: heartbeatInterval,
		clients:   make(map[string]map[chan *entities.ReportEvent]bool),
	}
}

// StreamPatientReports handles GET /api/stream/patients/{id}
func (h *ReportStreamHandler) StreamPatientReports(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	h.stream(w, r, providers.GetPatientChannel(patientID), map[string]interface{}{
		"patient_id": patientID,
	}, nil)
}

// StreamReports handles GET /api/stream/reports?risk_level=high
func (h *ReportStreamHandler) StreamReports(w http.ResponseWriter, r *http.Request) {
	var filter func(*entities.ReportEvent) bool
	if raw := r.URL.Query().Get("risk_level"); raw != "" {
		level := entities.RiskLevel(strings.ToLower(raw))
		if !level.IsValid() {
			respondWithError(w, http.StatusBadRequest, "risk_level must be one of low, moderate, high")
			return
		}
		filter = func(e *entities.ReportEvent) bool { return e.RiskLevel == level }
	}

	h.stream(w, r, providers.EventChannelReportUpdates, map[string]interface{}{
		"risk_level": r.URL.Query().Get("risk_level"),
	}, filter)
}

func (h *ReportStreamHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}, filter func(*entities.ReportEvent) bool) {
	if h.eventBus == nil {
		respondWithError(w, http.StatusServiceUnavailable, "event streaming is not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "event streaming is not available")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan *entities.ReportEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	hello["timestamp"] = time.Now().UTC()
	h.sendEvent(w, "connected", hello)
	flusher.Flush()

	forwarding := make(chan struct{})
	go func() {
		defer close(forwarding)
		forwardEvents(ctx, eventChan, clientChan, filter)
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("channel", channel).Msg("Client disconnected from report stream")
			return
		case <-forwarding:
			if ctx.Err() == nil {
				log.Warn().Str("channel", channel).Msg("Report subscription closed, ending stream")
			}
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// forwardEvents copies matching events to the client, dropping them when the client lags
func forwardEvents(ctx context.Context, eventChan <-chan *entities.ReportEvent, clientChan chan<- *entities.ReportEvent, filter func(*entities.ReportEvent) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || (filter != nil && !filter(event)) {
				continue
			}
			select {
			case clientChan <- event:
			default:
			}
		}
	}
}

func (h *ReportStreamHandler) registerClient(channel string, clientChan chan *entities.ReportEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.ReportEvent]bool)
	}
	h.clients[channel][clientChan] = true
	log.Debug().Str("channel", channel).Int("clients", len(h.clients[channel])).Msg("Stream client registered")
}

func (h *ReportStreamHandler) unregisterClient(channel string, clientChan chan *entities.ReportEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

func (h *ReportStreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of connected stream clients
func (h *ReportStreamHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
