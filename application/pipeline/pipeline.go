// Package pipeline turns raw transcripts into validated, persistable nodes.
// Its boundary contract: ingestion always yields at least one well-formed
// node; extraction and parse failures degrade to a fallback note, never to an
// error escaping the pipeline.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"braindump/application/ports"
	"braindump/domain/node"
	"braindump/domain/timeres"
	"braindump/domain/validators"
)

// DefaultedReminderWarning is emitted when a date-only reminder gets the
// 09:00 local trigger.
const DefaultedReminderWarning = "Defaulted reminder time to 09:00 local"

// Pipeline composes time normalization and schema validation over raw model
// output.
type Pipeline struct {
	extractor ports.NodeExtractor
	validator *validators.NodeValidator
	settings  ports.SettingsRepository
	metrics   ports.MetricsRecorder
	logger    *zap.Logger
}

// NewPipeline wires a Pipeline. settings and metrics may be nil in tests.
func NewPipeline(
	extractor ports.NodeExtractor,
	validator *validators.NodeValidator,
	settings ports.SettingsRepository,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		validator: validator,
		settings:  settings,
		metrics:   metrics,
		logger:    logger,
	}
}

// IngestResult is one ingestion outcome.
type IngestResult struct {
	Nodes    []*node.Node
	LocalDay string
	Offset   string
}

// Ingest runs the full capture path for one transcript. It never returns an
// error for an uninterpretable transcript; the worst case is one fallback
// note carrying the raw words.
func (p *Pipeline) Ingest(ctx context.Context, userID, transcript, userTimeISO, userLocation string) *IngestResult {
	offset := timeres.OffsetFromUserTime(userTimeISO)
	localDay := timeres.ComputeLocalDay(userTimeISO)

	extraction, extractWarnings := p.extract(ctx, userID, transcript, userTimeISO, localDay, offset, userLocation)

	candidates := extraction.Candidates
	if len(candidates) == 0 {
		extractWarnings = append([]string{"Model did not return a tool call - using fallback"}, extractWarnings...)
		candidates = []map[string]interface{}{nil}
	}

	nodes := make([]*node.Node, 0, len(candidates))
	for _, candidate := range candidates {
		normalized, timeWarnings := p.Normalize(candidate, offset)
		n, _, usedFallback := p.validator.Validate(normalized, transcript)
		n.AddWarnings(timeWarnings...)
		n.AddWarnings(extractWarnings...)
		p.stamp(n, userTimeISO, offset, extraction, usedFallback)
		nodes = append(nodes, n)

		if usedFallback {
			p.count(ctx, "IngestFallback", nil)
		}
		p.logger.Info("node ingested",
			zap.String("node_id", n.NodeID),
			zap.String("node_type", string(n.NodeType)),
			zap.Bool("fallback", usedFallback),
			zap.Int("warnings", len(n.GlobalWarnings)),
		)
	}

	if p.metrics != nil {
		p.metrics.Count(ctx, "IngestNodes", float64(len(nodes)), nil)
	}
	return &IngestResult{Nodes: nodes, LocalDay: localDay, Offset: offset}
}

// extract calls the model, absorbing every failure into an empty result so
// validation produces the fallback. Invocation failures come back as warnings
// destined for the fallback node's global_warnings.
func (p *Pipeline) extract(ctx context.Context, userID, transcript, userTimeISO, localDay, offset, userLocation string) (*ports.ExtractionResult, []string) {
	if p.extractor == nil {
		return &ports.ExtractionResult{}, nil
	}

	req := ports.ExtractionRequest{
		Transcript:   transcript,
		UserTimeISO:  userTimeISO,
		LocalDay:     localDay,
		Offset:       offset,
		UserLocation: userLocation,
	}
	if p.settings != nil {
		// Lookup maps give the model real names to resolve against. Missing
		// settings are not an error.
		if contacts, err := p.settings.GetContacts(ctx, userID); err == nil {
			req.Contacts = contacts
		}
		if targets, err := p.settings.GetSlackTargets(ctx, userID); err == nil {
			req.SlackTargets = targets
		}
	}

	result, err := p.extractor.Extract(ctx, req)
	if err != nil {
		p.logger.Warn("extraction failed, falling back", zap.Error(err))
		return &ports.ExtractionResult{}, []string{"Bedrock call failed: " + err.Error()}
	}
	if result == nil {
		return &ports.ExtractionResult{}, nil
	}
	return result, nil
}

// Normalize resolves every embedded datetime field of the candidate through
// the time resolver, strictly before validation. Unparseable values become
// null plus a warning; the node is never rejected here.
func (p *Pipeline) Normalize(candidate map[string]interface{}, defaultOffset string) (map[string]interface{}, []string) {
	if candidate == nil {
		return nil, nil
	}
	var warnings []string
	out := shallowCopy(candidate)

	if reminder, ok := asObject(out["reminder"]); ok {
		warnings = append(warnings, p.normalizeReminder(reminder, defaultOffset)...)
		out["reminder"] = reminder
	}

	if todo, ok := asObject(out["todo"]); ok {
		warnings = append(warnings, normalizeDatetimeField(todo, "due_datetime_iso", defaultOffset)...)
		warnings = append(warnings, normalizeDateField(todo, "due_date_iso")...)
		out["todo"] = todo
	}

	for _, key := range []string{"calendar_placeholder", "ms_calendar"} {
		if cal, ok := asObject(out[key]); ok {
			warnings = append(warnings, normalizeDatetimeField(cal, "start_datetime_iso", defaultOffset)...)
			warnings = append(warnings, normalizeDatetimeField(cal, "end_datetime_iso", defaultOffset)...)
			out[key] = cal
		}
	}

	if ti, ok := asObject(out["time_interpretation"]); ok {
		for _, field := range []string{"resolved_start_iso", "resolved_end_iso"} {
			if value, ok := ti[field].(string); ok && value != "" {
				if normalized, ok := timeres.EnsureISODatetime(value, defaultOffset); ok {
					ti[field] = normalized
				}
			}
		}
		out["time_interpretation"] = ti
	}

	return out, warnings
}

// normalizeReminder handles the trigger datetime plus the date-only default:
// a resolvable date with no time of day becomes a 09:00 local trigger.
func (p *Pipeline) normalizeReminder(reminder map[string]interface{}, defaultOffset string) []string {
	warnings := normalizeDatetimeField(reminder, "trigger_datetime_iso", defaultOffset)

	trigger, _ := reminder["trigger_datetime_iso"].(string)
	if trigger != "" {
		return warnings
	}

	when, ok := asObject(reminder["when"])
	if !ok {
		return warnings
	}
	if needs, _ := when["needs_clarification"].(bool); needs {
		return warnings
	}
	resolvedStart, _ := when["resolved_start_iso"].(string)
	if resolvedStart == "" {
		return warnings
	}

	if normalized, ok := timeres.EnsureISODatetime(resolvedStart, defaultOffset); ok {
		if timeres.IsDateOnly(resolvedStart) {
			if datePart, ok := timeres.EnsureISODate(resolvedStart); ok {
				if trigger, ok := timeres.DateToDatetimeISO(datePart, timeres.DefaultReminderTime, defaultOffset); ok {
					reminder["trigger_datetime_iso"] = trigger
					warnings = append(warnings, DefaultedReminderWarning)
				}
			}
		} else {
			reminder["trigger_datetime_iso"] = normalized
		}
	}
	return warnings
}

// stamp assigns the server-side fields of a freshly ingested node.
func (p *Pipeline) stamp(n *node.Node, userTimeISO, offset string, extraction *ports.ExtractionResult, usedFallback bool) {
	if n.NodeID == "" {
		n.NodeID = node.NewNodeID()
	}
	n.CreatedAtISO = timeres.UTCNowISO()
	n.CapturedAtISO = userTimeISO
	n.Timezone = offset
	if n.Status == "" {
		n.Status = node.StatusActive
	}
	n.ParseDebug = &node.ParseDebug{
		ModelID:      extraction.ModelID,
		LatencyMs:    extraction.LatencyMs,
		ToolNameUsed: extraction.ToolName,
		FallbackUsed: usedFallback,
	}
}

func (p *Pipeline) count(ctx context.Context, name string, dims map[string]string) {
	if p.metrics != nil {
		p.metrics.Count(ctx, name, 1, dims)
	}
}

func normalizeDatetimeField(payload map[string]interface{}, field, defaultOffset string) []string {
	value, ok := payload[field].(string)
	if !ok || value == "" {
		return nil
	}
	if normalized, ok := timeres.EnsureISODatetime(value, defaultOffset); ok {
		payload[field] = normalized
		return nil
	}
	payload[field] = nil
	return []string{fmt.Sprintf("Could not parse %s: %s", field, value)}
}

func normalizeDateField(payload map[string]interface{}, field string) []string {
	value, ok := payload[field].(string)
	if !ok || value == "" {
		return nil
	}
	if normalized, ok := timeres.EnsureISODate(value); ok {
		payload[field] = normalized
		return nil
	}
	payload[field] = nil
	return []string{fmt.Sprintf("Could not parse %s: %s", field, value)}
}

func asObject(raw interface{}) (map[string]interface{}, bool) {
	obj, ok := raw.(map[string]interface{})
	return obj, ok && obj != nil
}

func shallowCopy(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			inner := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}
