package dispatch

import (
	"context"

	"braindump/application/ports"
	"braindump/domain/node"
	"braindump/domain/timeres"
	apperrors "braindump/pkg/errors"
)

// resolveCalendarTimes picks start/end for a calendar payload. End falls
// back from explicit end, to the time spec's resolved end, to start plus
// duration_minutes; an unresolvable end may stay empty (Google defaults it).
func resolveCalendarTimes(cal *node.CalendarPayload, ti *node.TimeSpec) (string, string, error) {
	if cal.Start != nil && cal.Start.NeedsClarification {
		return "", "", apperrors.NewClarificationNeededError("calendar time needs clarification")
	}

	start := stringValue(cal.StartDatetimeISO)
	if start == "" && cal.Start != nil {
		start = stringValue(cal.Start.ResolvedStartISO)
	}
	if start == "" && ti != nil {
		start = stringValue(ti.ResolvedStartISO)
	}
	if start == "" {
		return "", "", apperrors.NewMissingFieldError("missing start time for calendar event")
	}

	end := stringValue(cal.EndDatetimeISO)
	if end == "" && cal.Start != nil {
		end = stringValue(cal.Start.ResolvedEndISO)
	}
	if end == "" && ti != nil {
		end = stringValue(ti.ResolvedEndISO)
	}
	if end == "" && cal.DurationMinutes > 0 {
		if shifted, ok := timeres.AddMinutes(start, cal.DurationMinutes); ok {
			end = shifted
		}
	}

	return start, end, nil
}

// buildEventDetails assembles the provider-neutral event from the node.
// Attendees are the free-text entries that look like addresses.
func buildEventDetails(n *node.Node, cal *node.CalendarPayload, start, end string) ports.EventDetails {
	title := cal.EventTitle
	if title == "" {
		title = n.Title
	}
	if title == "" {
		title = cal.Intent
	}
	if title == "" {
		title = "Untitled Event"
	}

	description := cal.Intent
	if description == "" {
		description = n.Body
	}

	var attendees []string
	for _, entry := range cal.AttendeesText {
		if email := trimmedEmail(entry); email != "" {
			attendees = append(attendees, email)
		}
	}

	return ports.EventDetails{
		Title:         title,
		StartDatetime: start,
		EndDatetime:   end,
		Description:   description,
		Location:      cal.LocationText,
		Attendees:     attendees,
	}
}

func (d *Dispatcher) executeGoogleCalendar(ctx context.Context, token string, n *node.Node) (map[string]interface{}, error) {
	cal := n.CalendarPlaceholder
	if cal == nil {
		return nil, apperrors.NewMissingFieldError("calendar_placeholder payload missing")
	}

	start, end, err := resolveCalendarTimes(cal, n.TimeInterpretation)
	if err != nil {
		return nil, err
	}

	response, err := d.calendar.CreateEvent(ctx, token, buildEventDetails(n, cal, start, end))
	if err != nil {
		return nil, providerFailure(err, "create calendar event")
	}

	applyCalendarMetadata(cal, response, "htmlLink")
	return response, nil
}

func (d *Dispatcher) executeOutlookCalendar(ctx context.Context, token string, n *node.Node) (map[string]interface{}, error) {
	cal := n.MsCalendar
	if cal == nil {
		return nil, apperrors.NewMissingFieldError("ms_calendar payload missing")
	}

	start, end, err := resolveCalendarTimes(cal, n.TimeInterpretation)
	if err != nil {
		return nil, err
	}
	// Graph events require an explicit end.
	if end == "" {
		return nil, apperrors.NewMissingFieldError("missing end time for Microsoft calendar event")
	}

	response, err := d.graph.CreateEvent(ctx, token, buildEventDetails(n, cal, start, end))
	if err != nil {
		return nil, providerFailure(err, "create Microsoft calendar event")
	}

	applyCalendarMetadata(cal, response, "webLink")
	return response, nil
}

// applyCalendarMetadata merges the provider's event id and link into the
// payload.
func applyCalendarMetadata(cal *node.CalendarPayload, response map[string]interface{}, linkKey string) {
	if id, ok := response["id"].(string); ok && id != "" {
		cal.ProviderEventID = id
	}
	if link, ok := response[linkKey].(string); ok && link != "" {
		cal.ProviderEventLink = link
	}
}
