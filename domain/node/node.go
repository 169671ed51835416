package node

import (
	"sort"
)

// SchemaVersion tags every node document. Bump only with a migration.
const SchemaVersion = "braindump.node.v1"

// Field caps enforced by validation.
const (
	MaxTitleLen        = 120
	MaxBodyLen         = 4000
	MaxTags            = 12
	MaxTagLen          = 40
	MaxEvidence        = 5
	MaxQuoteLen        = 200
	FallbackConfidence = 0.3
)

// Type identifies which payload a node carries.
type Type string

const (
	TypeReminder            Type = "reminder"
	TypeTodo                Type = "todo"
	TypeNote                Type = "note"
	TypeCalendarPlaceholder Type = "calendar_placeholder"
	TypeEmail               Type = "email"
	TypeSlackMessage        Type = "slack_message"
	TypeMsEmail             Type = "ms_email"
	TypeMsCalendar          Type = "ms_calendar"
)

// AllTypes is the closed node-type enumeration.
var AllTypes = []Type{
	TypeReminder, TypeTodo, TypeNote, TypeCalendarPlaceholder,
	TypeEmail, TypeSlackMessage, TypeMsEmail, TypeMsCalendar,
}

// ExecutableTypes are the node types the dispatcher can act on. Everything
// else passes through "complete" untouched and is rejected by "execute".
var ExecutableTypes = map[Type]bool{
	TypeCalendarPlaceholder: true,
	TypeEmail:               true,
	TypeSlackMessage:        true,
	TypeMsEmail:             true,
	TypeMsCalendar:          true,
}

// IsValidType reports membership in the closed enumeration.
func IsValidType(t Type) bool {
	for _, v := range AllTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Status of a node's lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// WordTimeRange locates a quote inside the source audio, in milliseconds.
type WordTimeRange struct {
	StartMs int64 `json:"start_ms" dynamodbav:"start_ms"`
	EndMs   int64 `json:"end_ms" dynamodbav:"end_ms"`
}

// EvidenceItem anchors a node to the transcript span it was extracted from.
type EvidenceItem struct {
	Quote         string         `json:"quote" dynamodbav:"quote"`
	WordTimeRange *WordTimeRange `json:"word_time_range,omitempty" dynamodbav:"word_time_range,omitempty"`
}

// LocationContext records whether the user's location informed extraction.
type LocationContext struct {
	LocationUsed bool   `json:"location_used" dynamodbav:"location_used"`
	Relevance    string `json:"location_relevance,omitempty" dynamodbav:"location_relevance,omitempty"`
}

// ParseDebug captures extraction provenance for troubleshooting.
type ParseDebug struct {
	ModelID      string `json:"model_id,omitempty" dynamodbav:"model_id,omitempty"`
	LatencyMs    int64  `json:"latency_ms,omitempty" dynamodbav:"latency_ms,omitempty"`
	ToolNameUsed string `json:"tool_name_used,omitempty" dynamodbav:"tool_name_used,omitempty"`
	FallbackUsed bool   `json:"fallback_used" dynamodbav:"fallback_used"`
}

// Node is one structured unit of captured intent. Exactly one payload pointer
// is non-nil and its JSON key matches NodeType.
type Node struct {
	SchemaVersion string   `json:"schema_version" dynamodbav:"schema_version"`
	NodeType      Type     `json:"node_type" dynamodbav:"node_type"`
	Title         string   `json:"title" dynamodbav:"title"`
	Body          string   `json:"body" dynamodbav:"body"`
	Tags          []string `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	Status        Status   `json:"status" dynamodbav:"status"`
	Confidence    float64  `json:"confidence" dynamodbav:"confidence"`

	Evidence           []EvidenceItem  `json:"evidence" dynamodbav:"evidence"`
	TimeInterpretation *TimeSpec       `json:"time_interpretation,omitempty" dynamodbav:"time_interpretation,omitempty"`
	LocationContext    LocationContext `json:"location_context" dynamodbav:"location_context"`

	Reminder            *ReminderPayload     `json:"reminder,omitempty" dynamodbav:"reminder,omitempty"`
	Todo                *TodoPayload         `json:"todo,omitempty" dynamodbav:"todo,omitempty"`
	Note                *NotePayload         `json:"note,omitempty" dynamodbav:"note,omitempty"`
	CalendarPlaceholder *CalendarPayload     `json:"calendar_placeholder,omitempty" dynamodbav:"calendar_placeholder,omitempty"`
	Email               *EmailPayload        `json:"email,omitempty" dynamodbav:"email,omitempty"`
	SlackMessage        *SlackMessagePayload `json:"slack_message,omitempty" dynamodbav:"slack_message,omitempty"`
	MsEmail             *EmailPayload        `json:"ms_email,omitempty" dynamodbav:"ms_email,omitempty"`
	MsCalendar          *CalendarPayload     `json:"ms_calendar,omitempty" dynamodbav:"ms_calendar,omitempty"`

	GlobalWarnings []string `json:"global_warnings,omitempty" dynamodbav:"global_warnings,omitempty"`

	NodeID        string      `json:"node_id" dynamodbav:"node_id"`
	CreatedAtISO  string      `json:"created_at_iso" dynamodbav:"created_at_iso"`
	CapturedAtISO string      `json:"captured_at_iso" dynamodbav:"captured_at_iso"`
	Timezone      string      `json:"timezone,omitempty" dynamodbav:"timezone,omitempty"`
	ParseDebug    *ParseDebug `json:"parse_debug,omitempty" dynamodbav:"parse_debug,omitempty"`
}

// Recurrence describes a repeating reminder schedule.
type Recurrence struct {
	Pattern   string   `json:"pattern" dynamodbav:"pattern"`
	Interval  int      `json:"interval,omitempty" dynamodbav:"interval,omitempty"`
	ByWeekday []string `json:"byweekday,omitempty" dynamodbav:"byweekday,omitempty"`
}

// ReminderPayload carries a time-triggered prompt.
type ReminderPayload struct {
	ReminderText       string      `json:"reminder_text" dynamodbav:"reminder_text"`
	When               *TimeSpec   `json:"when,omitempty" dynamodbav:"when,omitempty"`
	TriggerDatetimeISO *string     `json:"trigger_datetime_iso" dynamodbav:"trigger_datetime_iso"`
	Recurrence         *Recurrence `json:"recurrence,omitempty" dynamodbav:"recurrence,omitempty"`
	Priority           string      `json:"priority,omitempty" dynamodbav:"priority,omitempty"`
	SnoozeMinutes      int         `json:"snooze_minutes_default,omitempty" dynamodbav:"snooze_minutes_default,omitempty"`
}

// TodoPayload carries an actionable task.
type TodoPayload struct {
	Task             string    `json:"task" dynamodbav:"task"`
	Due              *TimeSpec `json:"due,omitempty" dynamodbav:"due,omitempty"`
	DueDateISO       *string   `json:"due_date_iso,omitempty" dynamodbav:"due_date_iso,omitempty"`
	DueDatetimeISO   *string   `json:"due_datetime_iso,omitempty" dynamodbav:"due_datetime_iso,omitempty"`
	Priority         string    `json:"priority,omitempty" dynamodbav:"priority,omitempty"`
	StatusDetail     string    `json:"status_detail,omitempty" dynamodbav:"status_detail,omitempty"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty" dynamodbav:"estimated_minutes,omitempty"`
	Project          string    `json:"project,omitempty" dynamodbav:"project,omitempty"`
	Checklist        []string  `json:"checklist,omitempty" dynamodbav:"checklist,omitempty"`
}

// NotePayload carries free-form captured information.
type NotePayload struct {
	Content         string   `json:"content" dynamodbav:"content"`
	CategoryHint    string   `json:"category_hint,omitempty" dynamodbav:"category_hint,omitempty"`
	Pin             bool     `json:"pin" dynamodbav:"pin"`
	RelatedEntities []string `json:"related_entities,omitempty" dynamodbav:"related_entities,omitempty"`
}

// NoteCategoryHints is the closed category_hint enumeration.
var NoteCategoryHints = []string{"personal", "school", "work", "health", "finance", "idea", "other"}

// CalendarPayload carries a tentative calendar event. Shared by
// calendar_placeholder (Google) and ms_calendar (Outlook).
type CalendarPayload struct {
	Intent           string    `json:"intent,omitempty" dynamodbav:"intent,omitempty"`
	EventTitle       string    `json:"event_title,omitempty" dynamodbav:"event_title,omitempty"`
	Start            *TimeSpec `json:"start,omitempty" dynamodbav:"start,omitempty"`
	StartDatetimeISO *string   `json:"start_datetime_iso,omitempty" dynamodbav:"start_datetime_iso,omitempty"`
	EndDatetimeISO   *string   `json:"end_datetime_iso,omitempty" dynamodbav:"end_datetime_iso,omitempty"`
	DurationMinutes  int       `json:"duration_minutes,omitempty" dynamodbav:"duration_minutes,omitempty"`
	LocationText     string    `json:"location_text,omitempty" dynamodbav:"location_text,omitempty"`
	AttendeesText    []string  `json:"attendees_text,omitempty" dynamodbav:"attendees_text,omitempty"`

	ProviderEventID   string `json:"provider_event_id,omitempty" dynamodbav:"provider_event_id,omitempty"`
	ProviderEventLink string `json:"provider_event_link,omitempty" dynamodbav:"provider_event_link,omitempty"`
}

// EmailPayload carries an outbound email. Shared by email (Gmail) and
// ms_email (Outlook).
type EmailPayload struct {
	ToName   string      `json:"to_name,omitempty" dynamodbav:"to_name,omitempty"`
	ToEmail  interface{} `json:"to_email,omitempty" dynamodbav:"to_email,omitempty"`
	Subject  string      `json:"subject,omitempty" dynamodbav:"subject,omitempty"`
	Body     string      `json:"body,omitempty" dynamodbav:"body,omitempty"`
	Cc       []string    `json:"cc,omitempty" dynamodbav:"cc,omitempty"`
	Bcc      []string    `json:"bcc,omitempty" dynamodbav:"bcc,omitempty"`
	SendMode string      `json:"send_mode,omitempty" dynamodbav:"send_mode,omitempty"`

	ProviderMessageID string `json:"provider_message_id,omitempty" dynamodbav:"provider_message_id,omitempty"`
	ProviderThreadID  string `json:"provider_thread_id,omitempty" dynamodbav:"provider_thread_id,omitempty"`
	ProviderDraftID   string `json:"provider_draft_id,omitempty" dynamodbav:"provider_draft_id,omitempty"`
	ProviderStatus    string `json:"provider_status,omitempty" dynamodbav:"provider_status,omitempty"`
}

// SlackMessagePayload carries an outbound Slack message.
type SlackMessagePayload struct {
	Message       string `json:"message" dynamodbav:"message"`
	ChannelID     string `json:"channel_id,omitempty" dynamodbav:"channel_id,omitempty"`
	ChannelName   string `json:"channel_name,omitempty" dynamodbav:"channel_name,omitempty"`
	RecipientID   string `json:"recipient_id,omitempty" dynamodbav:"recipient_id,omitempty"`
	RecipientName string `json:"recipient_name,omitempty" dynamodbav:"recipient_name,omitempty"`

	ProviderMessageTs string `json:"provider_message_ts,omitempty" dynamodbav:"provider_message_ts,omitempty"`
	ProviderChannelID string `json:"provider_channel_id,omitempty" dynamodbav:"provider_channel_id,omitempty"`
	ProviderStatus    string `json:"provider_status,omitempty" dynamodbav:"provider_status,omitempty"`
}

// HasPayloadFor reports whether the payload pointer matching t is set.
func (n *Node) HasPayloadFor(t Type) bool {
	switch t {
	case TypeReminder:
		return n.Reminder != nil
	case TypeTodo:
		return n.Todo != nil
	case TypeNote:
		return n.Note != nil
	case TypeCalendarPlaceholder:
		return n.CalendarPlaceholder != nil
	case TypeEmail:
		return n.Email != nil
	case TypeSlackMessage:
		return n.SlackMessage != nil
	case TypeMsEmail:
		return n.MsEmail != nil
	case TypeMsCalendar:
		return n.MsCalendar != nil
	}
	return false
}

// PayloadCount returns how many payload pointers are set.
func (n *Node) PayloadCount() int {
	count := 0
	for _, t := range AllTypes {
		if n.HasPayloadFor(t) {
			count++
		}
	}
	return count
}

// AddWarnings merges warnings into GlobalWarnings as a deduplicated union.
// Order is not part of the contract; the result is kept sorted so repeated
// serialization is deterministic.
func (n *Node) AddWarnings(warnings ...string) {
	n.GlobalWarnings = MergeWarnings(n.GlobalWarnings, warnings)
}

// MergeWarnings unions two warning lists, dropping empties and duplicates.
// The returned slice is sorted.
func MergeWarnings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, w := range existing {
		if w != "" {
			seen[w] = true
		}
	}
	for _, w := range incoming {
		if w != "" {
			seen[w] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	merged := make([]string, 0, len(seen))
	for w := range seen {
		merged = append(merged, w)
	}
	sort.Strings(merged)
	return merged
}

// NewFallbackNote synthesizes the low-confidence note used when structured
// extraction fails validation. The evidence quote is the head of the body so
// the original words are never lost. title and body may come from a rejected
// candidate; both fall back to the transcript.
func NewFallbackNote(transcript, title, body string, warnings []string) *Node {
	if body == "" {
		body = transcript
	}
	if len(body) > MaxBodyLen {
		body = body[:MaxBodyLen]
	}
	quote := body
	if len(quote) > MaxQuoteLen {
		quote = quote[:MaxQuoteLen]
	}
	if quote == "" {
		quote = "(empty transcript)"
	}
	if title == "" {
		title = "Captured Note"
	}
	if len(title) > MaxTitleLen {
		title = title[:MaxTitleLen]
	}
	return &Node{
		SchemaVersion: SchemaVersion,
		NodeType:      TypeNote,
		Title:         title,
		Body:          body,
		Status:        StatusActive,
		Confidence:    FallbackConfidence,
		Evidence:      []EvidenceItem{{Quote: quote}},
		LocationContext: LocationContext{
			LocationUsed: false,
			Relevance:    "Fallback node - location not processed",
		},
		Note: &NotePayload{
			Content:      body,
			CategoryHint: "other",
			Pin:          false,
		},
		GlobalWarnings: MergeWarnings(nil, warnings),
	}
}
