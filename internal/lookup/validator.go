// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"context"
	"fmt"
	"time"

	"docrecon/internal/document"
	"docrecon/internal/ledger"
	"docrecon/internal/observability"
	"docrecon/internal/parallel"
	"docrecon/internal/resilience"
)

// Validator runs one lookup configuration over a document's line items.
type Validator struct {
	provider Provider
	config   Config
	policy   ScorePolicy
	weights  map[string]float64

	workers    int
	rowTimeout time.Duration
	retry      resilience.RetryConfig
	observer   *observability.StandardObserver
	now        func() time.Time
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithScorePolicy overrides the default scoring policy.
func WithScorePolicy(policy ScorePolicy) ValidatorOption {
	return func(v *Validator) { v.policy = policy }
}

// WithFieldWeights sets per-field weights for the combined matchScore,
// keyed by normalized field name.
func WithFieldWeights(weights map[string]float64) ValidatorOption {
	return func(v *Validator) { v.weights = weights }
}

// WithWorkers bounds per-row lookup concurrency.
func WithWorkers(workers int) ValidatorOption {
	return func(v *Validator) { v.workers = workers }
}

// WithRowTimeout bounds each row's provider call.
func WithRowTimeout(timeout time.Duration) ValidatorOption {
	return func(v *Validator) { v.rowTimeout = timeout }
}

// WithObserver attaches operation logging.
func WithObserver(observer *observability.StandardObserver) ValidatorOption {
	return func(v *Validator) { v.observer = observer }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator wires a provider to a lookup configuration.
func NewValidator(provider Provider, config Config, opts ...ValidatorOption) *Validator {
	v := &Validator{
		provider:   provider,
		config:     config,
		policy:     DefaultScorePolicy(),
		workers:    4,
		rowTimeout: 10 * time.Second,
		retry:      resilience.LookupRetryConfig(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateLineItems reconciles every line item against the provider and
// merges prior operator actions back in by row index. Recomputing with
// unchanged source data is deterministic; only the sticky ledger subset
// carries over between runs.
func (v *Validator) ValidateLineItems(ctx context.Context, doc *document.Document, prior map[int]ledger.Entry) (*Summary, error) {
	finish := func(bool, map[string]interface{}) {}
	if v.observer != nil {
		finish = v.observer.StartTiming("lookup_validator", "validate_line_items", doc.ID)
	}

	results := make([]Result, len(doc.LineItems))
	rowResults := parallel.Map(ctx, v.workers, len(doc.LineItems), v.observer,
		func(ctx context.Context, index int) (Result, error) {
			return v.validateRow(ctx, index, doc.LineItems[index]), nil
		})
	for _, rr := range rowResults {
		if rr.Err != nil {
			// The pool only errors a row when the whole run was cancelled.
			results[rr.Index] = Result{
				Index:   rr.Index,
				Found:   false,
				Message: fmt.Sprintf("lookup could not be completed for row %d: %v", rr.Index, rr.Err),
			}
			continue
		}
		results[rr.Index] = rr.Value
	}

	// Sticky operator decisions survive recomputation.
	entries := make([]ledger.Entry, len(results))
	for i := range results {
		entries[i] = results[i].Entry
	}
	entries = ledger.Merge(entries, prior)
	for i := range results {
		results[i].Entry = entries[i]
	}

	summary := Summarize(results, v.policy.MatchThreshold, v.now())
	finish(true, map[string]interface{}{
		"total":   summary.TotalItems,
		"valid":   summary.ValidCount,
		"invalid": summary.InvalidCount,
	})
	return summary, nil
}

// validateRow performs one keyed lookup and classifies the outcome. Row
// failures never propagate: the row degrades to not-found with the error
// surfaced in its message.
func (v *Validator) validateRow(ctx context.Context, index int, item document.LineItem) Result {
	result := Result{Index: index}

	keyColumn, ok := ResolveColumn(v.config.KeyColumn, item.Columns)
	if !ok {
		result.Message = fmt.Sprintf("key column %q not present in line item schema", v.config.KeyColumn)
		return result
	}

	keyValue := cellString(item.Cell(keyColumn))
	result.KeyValue = keyValue
	if keyValue == "" {
		result.Message = "row has no key value"
		return result
	}

	rowCtx, cancel := context.WithTimeout(ctx, v.rowTimeout)
	defer cancel()

	req := Request{KeyColumn: v.config.KeyColumn, KeyValue: keyValue, Fields: v.config.EnabledFields()}
	resp, err := resilience.RetryWithResult(rowCtx, v.retry, func(ctx context.Context) (*Response, error) {
		return v.provider.Lookup(ctx, req)
	})
	if err != nil {
		result.Message = fmt.Sprintf("lookup could not be completed for row %d: %v", index, err)
		return result
	}

	return v.classify(result, item, resp)
}

// classify turns a provider response into a scored, classified result.
func (v *Validator) classify(result Result, item document.LineItem, resp *Response) Result {
	if !resp.Found {
		result.SignatureStatus = "not_found"
		return result
	}

	var fieldResults []FieldResult
	var score float64

	switch {
	case len(resp.FieldResults) > 0:
		// Service providers score fields themselves.
		fieldResults = resp.FieldResults
		score = resp.MatchScore
	case len(resp.Row) > 0:
		fieldResults, score = v.scoreAgainstRow(item, resp.Row)
	}

	// With no scorable fields there is nothing to disagree; the key match
	// is the whole check.
	if len(fieldResults) == 0 {
		result.Found = true
		result.MatchScore = 1.0
		result.SignatureStatus = "valid"
		return result
	}

	result.FieldResults = fieldResults
	result.MatchScore = score

	if score >= v.policy.MatchThreshold {
		result.Found = true
		result.SignatureStatus = "valid"
		return result
	}

	// The key matched but a secondary field disagrees.
	result.PartialMatch = true
	result.SignatureStatus = "review"
	for _, fr := range fieldResults {
		if !fr.Matches {
			result.PartialReason = NormalizeFieldName(fr.Field) + "_mismatch"
			break
		}
	}
	return result
}

// scoreAgainstRow builds field results from the source row for every
// configured field both schemas can resolve. A field missing from either
// side is skipped, not an error.
func (v *Validator) scoreAgainstRow(item document.LineItem, row map[string]string) ([]FieldResult, float64) {
	rowColumns := make([]string, 0, len(row))
	for col := range row {
		rowColumns = append(rowColumns, col)
	}

	var results []FieldResult
	for _, field := range v.config.EnabledFields() {
		sourceCol, ok := ResolveColumn(field.TargetField, rowColumns)
		if !ok {
			continue
		}
		extractedCol, ok := ResolveColumn(field.SourceField, item.Columns)
		if !ok {
			continue
		}
		results = append(results, FieldResult{
			Field:          field.SourceField,
			SourceValue:    row[sourceCol],
			ExtractedValue: cellString(item.Cell(extractedCol)),
		})
	}

	weights := v.weights
	if weights == nil {
		weights = make(map[string]float64)
		for _, field := range v.config.EnabledFields() {
			if field.Weight > 0 {
				weights[NormalizeFieldName(field.SourceField)] = field.Weight
			}
		}
	}

	return v.policy.ScoreFields(results, weights)
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NewProvider builds the provider a configuration names.
func NewProvider(config Config, apiKey string, timeout time.Duration) (Provider, error) {
	switch config.System {
	case SystemCSV:
		return NewCSVProvider(config.Source, config.KeyColumn)
	case SystemExcel:
		return NewExcelProvider(config.Source, config.Sheet, config.KeyColumn)
	case SystemRegistry:
		return NewRegistryProvider(config.Source, timeout), nil
	case SystemDocMgt:
		return NewDocMgtProvider(config.Source, apiKey, config.Project, timeout), nil
	case SystemFileBound:
		return NewFileBoundProvider(config.Source, apiKey, config.Project, timeout), nil
	default:
		return nil, fmt.Errorf("unknown lookup system %q", config.System)
	}
}
