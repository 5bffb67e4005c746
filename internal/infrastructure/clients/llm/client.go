// Package llm talks to an OpenAI-compatible chat-completions endpoint
// (Akash Chat API by default) to produce surgical risk assessments.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/pkg/config"
	apperrors "github.com/nfcure/digitaltwin/backend/pkg/errors"
)

const (
	defaultBaseURL = "https://chatapi.akash.network/api/v1"
	defaultModel   = "Meta-Llama-3-1-405B-Instruct-FP8"

	assessmentMaxTokens = 1000
	historyMaxTokens    = 2000
	validationMaxTokens = 50
)

// Client implements providers.AssessmentProvider against a chat-completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

var _ providers.AssessmentProvider = (*Client)(nil)

// NewClient creates a new chat-completions client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Close releases the rate limiter. The client must not be used afterwards.
func (c *Client) Close() error {
	if c.limiter != nil {
		c.limiter.Stop()
	}
	return nil
}

// Name identifies the backing model.
func (c *Client) Name() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ValidateProcedure asks the model whether name is a medical procedure,
// treatment or condition. Obvious garbage is rejected locally; when the
// model cannot be reached the check degrades to a length test.
func (c *Client) ValidateProcedure(ctx context.Context, name string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if !passesLocalProcedureCheck(normalized) {
		return false, nil
	}

	answer, err := c.complete(ctx, "validate", validationSystemPrompt, buildValidationPrompt(name), validationMaxTokens, 0.1)
	if err != nil {
		log.Warn().Err(err).Str("procedure", name).Msg("Procedure validation unavailable, using permissive check")
		return permissiveProcedureCheck(normalized), nil
	}

	return interpretValidation(answer), nil
}

// AnalyzeMedicalData returns the model's free-text risk assessment.
func (c *Client) AnalyzeMedicalData(ctx context.Context, data *entities.MedicalData) (string, error) {
	if data == nil {
		return "", apperrors.NewValidationError("medical data is required")
	}
	return c.complete(ctx, "assessment", assessmentSystemPrompt, buildAssessmentPrompt(data), assessmentMaxTokens, 0.3)
}

// AnalyzeHistoricalReports returns the model's review of prior reports.
func (c *Client) AnalyzeHistoricalReports(ctx context.Context, patientID string, reports []*entities.MedicalReport) (string, error) {
	return c.complete(ctx, "history", historySystemPrompt, buildHistoryPrompt(patientID, reports), historyMaxTokens, 0.3)
}

func (c *Client) complete(ctx context.Context, operation, system, user string, maxTokens int, temperature float64) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordLLMMetric(ctx, c.model, operation, 0, 0, err)
			return "", err
		}
		recordLLMRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode llm request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to build llm request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordLLMMetric(ctx, c.model, operation, 0, time.Since(start), err)
		return "", apperrors.NewExternalError("llm request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("status %d", resp.StatusCode)
		recordLLMMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", apperrors.NewUnauthorizedError("llm credentials rejected",
				fmt.Errorf("%w: %v", providers.ErrAssessmentUnauthorized, statusErr))
		}
		return "", apperrors.NewExternalError("llm request failed", statusErr)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		recordLLMMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewExternalError("failed to decode llm response", err)
	}
	if len(decoded.Choices) == 0 {
		err := errors.New("no choices")
		recordLLMMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewExternalError("llm response contained no choices", err)
	}

	recordLLMMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), nil)
	return decoded.Choices[0].Message.Content, nil
}

func passesLocalProcedureCheck(normalized string) bool {
	if len([]rune(normalized)) < 2 {
		return false
	}
	for _, r := range normalized {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func permissiveProcedureCheck(normalized string) bool {
	return len([]rune(normalized)) >= 3
}

func interpretValidation(answer string) bool {
	lower := strings.ToLower(answer)
	return strings.Contains(lower, "valid") && !strings.Contains(lower, "invalid")
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-bucket.stop:
				return
			case <-ticker.C:
				select {
				case bucket.tokens <- struct{}{}:
				default:
				}
			}
		}
	}()

	return bucket
}

// Stop ends the refill loop. Tokens already in the bucket can still be taken.
func (b *tokenBucket) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
