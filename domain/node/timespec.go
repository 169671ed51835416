package node

// TimeKind classifies how precisely a time was expressed.
type TimeKind string

const (
	TimeKindDatetime    TimeKind = "datetime"
	TimeKindDate        TimeKind = "date"
	TimeKindTimeWindow  TimeKind = "time_window"
	TimeKindRelative    TimeKind = "relative"
	TimeKindUnspecified TimeKind = "unspecified"
)

// TimeKinds is the closed kind enumeration.
var TimeKinds = []TimeKind{
	TimeKindDatetime, TimeKindDate, TimeKindTimeWindow,
	TimeKindRelative, TimeKindUnspecified,
}

// IsValidTimeKind reports membership in the closed enumeration.
func IsValidTimeKind(k TimeKind) bool {
	for _, v := range TimeKinds {
		if v == k {
			return true
		}
	}
	return false
}

// TimeSpec is the shared time-resolution record embedded in payloads and in a
// node's time_interpretation. When NeedsClarification is true the resolved
// fields may be absent; otherwise normalization populates ResolvedStartISO
// for any resolvable date.
type TimeSpec struct {
	OriginalText          string   `json:"original_text,omitempty" dynamodbav:"original_text,omitempty"`
	Kind                  TimeKind `json:"kind,omitempty" dynamodbav:"kind,omitempty"`
	ResolvedStartISO      *string  `json:"resolved_start_iso" dynamodbav:"resolved_start_iso"`
	ResolvedEndISO        *string  `json:"resolved_end_iso,omitempty" dynamodbav:"resolved_end_iso,omitempty"`
	NeedsClarification    bool     `json:"needs_clarification" dynamodbav:"needs_clarification"`
	ClarificationQuestion string   `json:"clarification_question,omitempty" dynamodbav:"clarification_question,omitempty"`
	ResolutionNotes       string   `json:"resolution_notes,omitempty" dynamodbav:"resolution_notes,omitempty"`
}
