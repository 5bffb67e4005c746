package llm

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type llmMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	llmMetricsOnce sync.Once
	llmMetricsOK   bool
	metricsLLM     llmMetrics
)

func ensureLLMMetrics() bool {
	llmMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/nfcure/digitaltwin/backend/llm")

		requestCount, err := meter.Int64Counter(
			"ai.llm.request.count",
			metric.WithDescription("Number of chat-completion requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.llm.request.duration",
			metric.WithDescription("Chat-completion request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.llm.request.errors",
			metric.WithDescription("Number of failed chat-completion requests"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.llm.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		metricsLLM = llmMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
		llmMetricsOK = true
	})
	return llmMetricsOK
}

func recordLLMMetric(ctx context.Context, model, operation string, statusCode int, duration time.Duration, err error) {
	if !ensureLLMMetrics() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	metricsLLM.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metricsLLM.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metricsLLM.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordLLMRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	if !ensureLLMMetrics() {
		return
	}
	metricsLLM.rateLimitWait.Record(ctx, float64(wait.Milliseconds()),
		metric.WithAttributes(attribute.String("ai.model", model)))
}
