// Package validators turns untyped candidate nodes into the typed node model
// or a safe fallback. This is the only place dynamic, model-produced input is
// allowed to exist; everything downstream works with the typed form.
package validators

import (
	"encoding/json"
	"fmt"

	"braindump/domain/node"
)

// Field caps from the node document schema that are shape checks rather than
// structural requirements.
const (
	maxQuoteLen         = 500
	maxChecklistItems   = 20
	maxChecklistItemLen = 200
	maxAttendees        = 20
	maxGlobalWarnings   = 10
	maxGlobalWarningLen = 300
	maxEmailSubjectLen  = 200
	maxEmailBodyLen     = 8000
)

var requiredTopLevel = []string{
	"schema_version", "node_type", "title", "body", "tags",
	"status", "confidence", "evidence", "location_context",
}

// knownTopLevel is every key the node envelope declares. Anything else is
// flagged, never silently dropped.
var knownTopLevel = map[string]bool{
	"schema_version": true, "node_type": true, "title": true, "body": true,
	"tags": true, "status": true, "confidence": true, "evidence": true,
	"time_interpretation": true, "location_context": true,
	"reminder": true, "todo": true, "note": true, "calendar_placeholder": true,
	"email": true, "slack_message": true, "ms_email": true, "ms_calendar": true,
	"global_warnings": true, "node_id": true, "created_at_iso": true,
	"captured_at_iso": true, "timezone": true, "parse_debug": true,
}

var knownPayloadKeys = map[string]map[string]bool{
	"reminder": {
		"reminder_text": true, "when": true, "trigger_datetime_iso": true,
		"recurrence": true, "priority": true, "snooze_minutes_default": true,
	},
	"todo": {
		"task": true, "due": true, "due_date_iso": true, "due_datetime_iso": true,
		"priority": true, "status_detail": true, "estimated_minutes": true,
		"project": true, "checklist": true,
	},
	"note": {
		"content": true, "category_hint": true, "pin": true, "related_entities": true,
	},
	"calendar_placeholder": {
		"intent": true, "event_title": true, "start": true,
		"start_datetime_iso": true, "end_datetime_iso": true, "duration_minutes": true,
		"location_text": true, "attendees_text": true,
		"provider_event_id": true, "provider_event_link": true,
	},
	"email": {
		"to_name": true, "to_email": true, "subject": true, "body": true,
		"cc": true, "bcc": true, "send_mode": true,
		"provider_message_id": true, "provider_thread_id": true,
		"provider_draft_id": true, "provider_status": true,
	},
	"slack_message": {
		"message": true, "channel_id": true, "channel_name": true,
		"recipient_id": true, "recipient_name": true,
		"provider_message_ts": true, "provider_channel_id": true, "provider_status": true,
	},
}

func init() {
	// The Microsoft payloads share the Gmail/Google shapes.
	knownPayloadKeys["ms_email"] = knownPayloadKeys["email"]
	knownPayloadKeys["ms_calendar"] = knownPayloadKeys["calendar_placeholder"]
}

// NodeValidator validates candidate nodes. Structural failures are fatal and
// produce a fallback note; shape failures are downgraded to warnings so user
// intent is never dropped over a length cap.
type NodeValidator struct{}

// NewNodeValidator creates a NodeValidator.
func NewNodeValidator() *NodeValidator {
	return &NodeValidator{}
}

// Validate checks candidate against the node schema and returns the typed
// node, the warnings produced by this call, and whether a fallback was
// substituted. It never returns a nil node.
func (v *NodeValidator) Validate(candidate map[string]interface{}, transcript string) (*node.Node, []string, bool) {
	if len(candidate) == 0 {
		warnings := []string{"No node provided by model"}
		return node.NewFallbackNote(transcript, "", "", warnings), warnings, true
	}

	structural := v.checkStructural(candidate)
	shape := v.checkShape(candidate)

	if len(structural) > 0 {
		all := append(structural, shape...)
		warnings := make([]string, 0, len(all))
		for _, e := range all {
			warnings = append(warnings, "Validation error: "+e)
		}
		title, _ := candidate["title"].(string)
		body, _ := candidate["body"].(string)
		return node.NewFallbackNote(transcript, title, body, warnings), warnings, true
	}

	decoded, err := decodeNode(candidate)
	if err != nil {
		warnings := []string{"Validation error: node does not decode: " + err.Error()}
		title, _ := candidate["title"].(string)
		body, _ := candidate["body"].(string)
		return node.NewFallbackNote(transcript, title, body, warnings), warnings, true
	}

	warnings := make([]string, 0, len(shape))
	for _, e := range shape {
		warnings = append(warnings, "Schema warning: "+e)
	}
	decoded.AddWarnings(warnings...)
	return decoded, warnings, false
}

// checkStructural runs the fatal checks. Any failure here means the model
// call drifted and the candidate cannot be trusted.
func (v *NodeValidator) checkStructural(candidate map[string]interface{}) []string {
	var errs []string

	for _, field := range requiredTopLevel {
		if _, ok := candidate[field]; !ok {
			errs = append(errs, "missing required field: "+field)
		}
	}

	if sv, _ := candidate["schema_version"].(string); sv != node.SchemaVersion {
		errs = append(errs, fmt.Sprintf("invalid schema_version: expected %s", node.SchemaVersion))
	}

	nodeType, _ := candidate["node_type"].(string)
	if !node.IsValidType(node.Type(nodeType)) {
		errs = append(errs, fmt.Sprintf("invalid node_type: %v", candidate["node_type"]))
	} else if payload, ok := candidate[nodeType]; !ok || payload == nil {
		errs = append(errs, fmt.Sprintf("%s node missing '%s' payload", nodeType, nodeType))
	} else if _, ok := payload.(map[string]interface{}); !ok {
		errs = append(errs, fmt.Sprintf("'%s' payload is not an object", nodeType))
	}

	if raw, ok := candidate["confidence"]; ok {
		if conf, isNum := asFloat(raw); !isNum || conf < 0 || conf > 1 {
			errs = append(errs, fmt.Sprintf("confidence must be 0-1, got: %v", raw))
		}
	}

	if evidence, ok := candidate["evidence"].([]interface{}); !ok || len(evidence) == 0 {
		if _, present := candidate["evidence"]; present {
			errs = append(errs, "evidence must be non-empty array")
		}
	}

	if status, ok := candidate["status"]; ok {
		if s, _ := status.(string); s != string(node.StatusActive) && s != string(node.StatusCompleted) {
			errs = append(errs, fmt.Sprintf("invalid status: %v", status))
		}
	}

	if loc, ok := candidate["location_context"].(map[string]interface{}); ok {
		if _, has := loc["location_used"]; !has {
			errs = append(errs, "location_context missing 'location_used'")
		}
	}

	return errs
}

// checkShape runs the soft checks: caps, enums, unknown keys. Violations are
// reported, not enforced.
func (v *NodeValidator) checkShape(candidate map[string]interface{}) []string {
	var errs []string

	for key := range candidate {
		if !knownTopLevel[key] {
			errs = append(errs, "unknown field: "+key)
		}
	}

	if title, ok := candidate["title"].(string); ok && len(title) > node.MaxTitleLen {
		errs = append(errs, fmt.Sprintf("title exceeds %d characters", node.MaxTitleLen))
	}
	if body, ok := candidate["body"].(string); ok && len(body) > node.MaxBodyLen {
		errs = append(errs, fmt.Sprintf("body exceeds %d characters", node.MaxBodyLen))
	}

	if tags, ok := candidate["tags"].([]interface{}); ok {
		if len(tags) > node.MaxTags {
			errs = append(errs, fmt.Sprintf("tags exceeds %d items", node.MaxTags))
		}
		for _, raw := range tags {
			if tag, ok := raw.(string); ok && len(tag) > node.MaxTagLen {
				errs = append(errs, fmt.Sprintf("tag exceeds %d characters: %s", node.MaxTagLen, tag))
			}
		}
	}

	if evidence, ok := candidate["evidence"].([]interface{}); ok {
		if len(evidence) > node.MaxEvidence {
			errs = append(errs, fmt.Sprintf("evidence exceeds %d items", node.MaxEvidence))
		}
		for _, raw := range evidence {
			item, ok := raw.(map[string]interface{})
			if !ok {
				errs = append(errs, "evidence item is not an object")
				continue
			}
			if quote, ok := item["quote"].(string); !ok {
				errs = append(errs, "evidence item missing quote")
			} else if len(quote) > maxQuoteLen {
				errs = append(errs, fmt.Sprintf("evidence quote exceeds %d characters", maxQuoteLen))
			}
		}
	}

	if warningsRaw, ok := candidate["global_warnings"].([]interface{}); ok {
		if len(warningsRaw) > maxGlobalWarnings {
			errs = append(errs, fmt.Sprintf("global_warnings exceeds %d items", maxGlobalWarnings))
		}
		for _, raw := range warningsRaw {
			if w, ok := raw.(string); ok && len(w) > maxGlobalWarningLen {
				errs = append(errs, fmt.Sprintf("global warning exceeds %d characters", maxGlobalWarningLen))
			}
		}
	}

	if ti, ok := candidate["time_interpretation"].(map[string]interface{}); ok {
		errs = append(errs, checkTimeSpec("time_interpretation", ti)...)
	}

	nodeType, _ := candidate["node_type"].(string)
	if payload, ok := candidate[nodeType].(map[string]interface{}); ok {
		errs = append(errs, v.checkPayloadShape(nodeType, payload)...)
	}

	return errs
}

func (v *NodeValidator) checkPayloadShape(nodeType string, payload map[string]interface{}) []string {
	var errs []string

	known := knownPayloadKeys[nodeType]
	for key := range payload {
		if known != nil && !known[key] {
			errs = append(errs, fmt.Sprintf("%s: unknown field: %s", nodeType, key))
		}
	}

	checkEnum := func(field string, allowed []string) {
		raw, ok := payload[field]
		if !ok || raw == nil {
			return
		}
		value, _ := raw.(string)
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Sprintf("%s: invalid %s: %v", nodeType, field, raw))
	}

	switch nodeType {
	case "reminder":
		checkEnum("priority", []string{"low", "normal", "high"})
		if when, ok := payload["when"].(map[string]interface{}); ok {
			errs = append(errs, checkTimeSpec(nodeType+".when", when)...)
		}
	case "todo":
		checkEnum("priority", []string{"low", "normal", "high"})
		checkEnum("status_detail", []string{"open", "done"})
		if checklist, ok := payload["checklist"].([]interface{}); ok {
			if len(checklist) > maxChecklistItems {
				errs = append(errs, fmt.Sprintf("todo: checklist exceeds %d items", maxChecklistItems))
			}
			for _, raw := range checklist {
				if item, ok := raw.(string); ok && len(item) > maxChecklistItemLen {
					errs = append(errs, fmt.Sprintf("todo: checklist item exceeds %d characters", maxChecklistItemLen))
				}
			}
		}
		if due, ok := payload["due"].(map[string]interface{}); ok {
			errs = append(errs, checkTimeSpec(nodeType+".due", due)...)
		}
	case "note":
		checkEnum("category_hint", node.NoteCategoryHints)
	case "calendar_placeholder", "ms_calendar":
		if attendees, ok := payload["attendees_text"].([]interface{}); ok && len(attendees) > maxAttendees {
			errs = append(errs, fmt.Sprintf("%s: attendees_text exceeds %d items", nodeType, maxAttendees))
		}
		if start, ok := payload["start"].(map[string]interface{}); ok {
			errs = append(errs, checkTimeSpec(nodeType+".start", start)...)
		}
	case "email", "ms_email":
		checkEnum("send_mode", []string{"send", "draft"})
		if subject, ok := payload["subject"].(string); ok && len(subject) > maxEmailSubjectLen {
			errs = append(errs, fmt.Sprintf("%s: subject exceeds %d characters", nodeType, maxEmailSubjectLen))
		}
		if body, ok := payload["body"].(string); ok && len(body) > maxEmailBodyLen {
			errs = append(errs, fmt.Sprintf("%s: body exceeds %d characters", nodeType, maxEmailBodyLen))
		}
	}

	return errs
}

func checkTimeSpec(path string, spec map[string]interface{}) []string {
	var errs []string
	if raw, ok := spec["kind"]; ok && raw != nil {
		if kind, _ := raw.(string); !node.IsValidTimeKind(node.TimeKind(kind)) {
			errs = append(errs, fmt.Sprintf("%s: invalid kind: %v", path, raw))
		}
	}
	return errs
}

// decodeNode converts the untyped candidate into the typed node via a JSON
// round trip, so tag names stay the single source of truth for field mapping.
func decodeNode(candidate map[string]interface{}) (*node.Node, error) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, err
	}
	var n node.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
