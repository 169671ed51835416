// Package providers contains the HTTP clients for the external integration
// APIs. Each client speaks one provider's REST surface and returns the raw
// response document; interpreting it is the dispatcher's job.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"braindump/application/ports"
	"braindump/domain/timeres"
	apperrors "braindump/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const calendarAPIBase = "https://www.googleapis.com/calendar/v3"

var dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// GoogleCalendarClient creates events through the Calendar v3 API.
type GoogleCalendarClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewGoogleCalendarClient creates a new GoogleCalendarClient.
func NewGoogleCalendarClient(logger *zap.Logger) *GoogleCalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleCalendarClient{
		client: resty.New().SetTimeout(30 * time.Second),
		logger: logger,
	}
}

// eventTime is the Calendar API start/end object. Date-only values use the
// "date" key and make the event all-day.
type eventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

func calendarEventTime(value string) eventTime {
	if dateOnlyPattern.MatchString(value) {
		return eventTime{Date: value}
	}
	return eventTime{DateTime: value}
}

// CreateEvent creates an event on the user's primary calendar. A missing end
// defaults to one hour after the start, or the next day for all-day events.
func (c *GoogleCalendarClient) CreateEvent(ctx context.Context, accessToken string, event ports.EventDetails) (map[string]interface{}, error) {
	end := event.EndDatetime
	if end == "" {
		defaulted, ok := defaultEventEnd(event.StartDatetime)
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unparseable event start '%s'", event.StartDatetime))
		}
		end = defaulted
	}

	body := map[string]interface{}{
		"summary": event.Title,
		"start":   calendarEventTime(event.StartDatetime),
		"end":     calendarEventTime(end),
	}
	if event.Description != "" {
		body["description"] = event.Description
	}
	if event.Location != "" {
		body["location"] = event.Location
	}
	if len(event.Attendees) > 0 {
		attendees := make([]map[string]string, 0, len(event.Attendees))
		for _, email := range event.Attendees {
			attendees = append(attendees, map[string]string{"email": email})
		}
		body["attendees"] = attendees
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(calendarAPIBase + "/calendars/primary/events")
	if err != nil {
		return nil, apperrors.NewProviderError("google calendar request failed", err)
	}

	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		c.logger.Warn("Google Calendar rejected event",
			zap.Int("status", resp.StatusCode()),
		)
		return nil, providerHTTPError("google calendar", resp.StatusCode(), resp.Body())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, apperrors.NewProviderError("undecodable google calendar response", err)
	}
	return result, nil
}

// defaultEventEnd picks the end for an event with no explicit one: the next
// day for all-day starts, one hour later for timed starts.
func defaultEventEnd(start string) (string, bool) {
	if dateOnlyPattern.MatchString(start) {
		next, err := nextDay(start)
		if err != nil {
			return "", false
		}
		return next, true
	}
	return timeres.AddMinutes(start, 60)
}

func nextDay(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), nil
}
