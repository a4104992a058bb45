// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds counters and histograms for HTTP endpoint instrumentation
type HTTPMetrics struct {
	requestCounter    metric.Int64Counter
	durationHisto     metric.Float64Histogram
	responseSizeHisto metric.Int64Histogram
}

// NewHTTPMetrics creates a new HTTPMetrics instance for a given service name
func NewHTTPMetrics(serviceName string) (*HTTPMetrics, error) {
	meter := otel.Meter(serviceName)

	requestCounter, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHisto, err := meter.Float64Histogram(
		"http_server_duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	responseSizeHisto, err := meter.Int64Histogram(
		"http_server_response_size",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestCounter:    requestCounter,
		durationHisto:     durationHisto,
		responseSizeHisto: responseSizeHisto,
	}, nil
}

// RecordRequest records a single HTTP request with its attributes
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, endpoint, statusCode string, durationMs float64, responseSize int64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_endpoint", endpoint),
		attribute.String("http_status_code", statusCode),
	}

	m.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.durationHisto.Record(ctx, durationMs, metric.WithAttributes(attrs...))
	if responseSize > 0 {
		m.responseSizeHisto.Record(ctx, responseSize, metric.WithAttributes(attrs...))
	}
}

// CacheMetrics counts public page cache lookups by outcome.
type CacheMetrics struct {
	lookups metric.Int64Counter
}

func NewCacheMetrics(serviceName string) (*CacheMetrics, error) {
	lookups, err := otel.Meter(serviceName).Int64Counter(
		"public_page_cache_lookups_total",
		metric.WithDescription("Public page cache lookups by result (hit, miss, error)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	return &CacheMetrics{lookups: lookups}, nil
}

// Lookup is safe on a nil receiver.
func (m *CacheMetrics) Lookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// SweepMetrics records the outcome of placement normalization runs.
type SweepMetrics struct {
	placements metric.Int64Counter
	runs       metric.Int64Counter
}

func NewSweepMetrics(serviceName string) (*SweepMetrics, error) {
	meter := otel.Meter(serviceName)
	placements, err := meter.Int64Counter(
		"placement_sweep_placements_total",
		metric.WithDescription("Placement groups handled by the sweeper by outcome"),
		metric.WithUnit("{placement}"),
	)
	if err != nil {
		return nil, err
	}
	runs, err := meter.Int64Counter(
		"placement_sweep_runs_total",
		metric.WithDescription("Sweeper runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}
	return &SweepMetrics{placements: placements, runs: runs}, nil
}

// Record is safe on a nil receiver.
func (m *SweepMetrics) Record(ctx context.Context, outcome string, normalized, failed int) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.placements.Add(ctx, int64(normalized), metric.WithAttributes(attribute.String("outcome", "normalized")))
	m.placements.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))
}
