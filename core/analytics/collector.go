package analytics

import (
	"context"
	"time"

	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/providers/observability"
)

// Sink receives derived usage records. Implementations must be safe for
// concurrent use; slow sinks delay only the recording goroutine, never the
// generation.
type Sink interface {
	// Write persists one record. Errors are logged by the collector and
	// otherwise ignored.
	Write(ctx context.Context, record UsageRecord) error
}

// CollectorConfig assembles a Collector.
type CollectorConfig struct {
	// FieldMaps maps backend identifiers to their usage field names.
	FieldMaps map[string]FieldMap

	// Pricing estimates costs for models missing a vendor-reported cost.
	Pricing cost.Table

	// Sinks receive every derived record, best-effort.
	Sinks []Sink

	// SinkTimeout bounds one sink write. Default: 5s.
	SinkTimeout time.Duration

	// Observability defaults to the noop provider.
	Observability observability.Provider
}

// Collector derives normalized usage records from raw backend usage blocks
// and fans them out to the configured sinks.
type Collector struct {
	fieldMaps   map[string]FieldMap
	pricing     cost.Table
	sinks       []Sink
	sinkTimeout time.Duration
	obs         observability.Provider
}

// NewCollector builds a Collector. A nil or empty config is valid and
// yields a collector that marks every record incomplete.
func NewCollector(config CollectorConfig) *Collector {
	if config.Observability == nil {
		config.Observability = observability.Noop()
	}
	if config.SinkTimeout == 0 {
		config.SinkTimeout = 5 * time.Second
	}
	return &Collector{
		fieldMaps:   config.FieldMaps,
		pricing:     config.Pricing,
		sinks:       config.Sinks,
		sinkTimeout: config.SinkTimeout,
		obs:         config.Observability,
	}
}

// Derive builds the usage record for one finished generation. It never
// fails: when the backend has no field map, raw is empty, or the mapped
// fields are absent, the record comes back zeroed with Incomplete set.
func (c *Collector) Derive(ctx context.Context, backendName, model, generationID string, raw map[string]any) UsageRecord {
	record := UsageRecord{
		GenerationID: generationID,
		Backend:      backendName,
		Model:        model,
		Timestamp:    time.Now(),
	}

	fieldMap, mapped := c.fieldMaps[backendName]
	if !mapped || len(raw) == 0 {
		record.Incomplete = true
		return record
	}

	input, inputOK := numeric(raw[fieldMap.Input])
	output, outputOK := numeric(raw[fieldMap.Output])
	if !inputOK || !outputOK {
		record.Incomplete = true
		return record
	}

	record.InputUnits = input
	record.OutputUnits = output
	record.TotalUnits = input + output

	if fieldMap.Total != "" {
		if reported, ok := numeric(raw[fieldMap.Total]); ok && reported != record.TotalUnits {
			// The sum of the parts wins over the vendor's arithmetic.
			c.obs.Warn(ctx, "usage total mismatch",
				observability.String(observability.AttrBackend, backendName),
				observability.Int64("usage.reported_total", reported),
				observability.Int64(observability.AttrUsageTotal, record.TotalUnits),
			)
		}
	}

	if fieldMap.Cost != "" {
		if reported, ok := numericFloat(raw[fieldMap.Cost]); ok {
			record.EstimatedCost = &reported
			record.Currency = fieldMap.Currency
		}
	}
	if record.EstimatedCost == nil && c.pricing != nil {
		if estimate := c.pricing.Estimate(model, int(input), int(output)); estimate > 0 {
			record.EstimatedCost = &estimate
			record.Currency = "USD"
		}
	}

	return record
}

// Record fans the record out to every sink on the calling goroutine. The
// gateway invokes it from a dedicated goroutine per generation; sink errors
// are logged and swallowed.
func (c *Collector) Record(ctx context.Context, record UsageRecord) {
	for _, sink := range c.sinks {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sinkTimeout)
		if err := sink.Write(writeCtx, record); err != nil {
			c.obs.Warn(ctx, "usage sink write failed",
				observability.String(observability.AttrBackend, record.Backend),
				observability.String(observability.AttrGenerationID, record.GenerationID),
				observability.Error(err),
			)
		}
		cancel()
	}
}
