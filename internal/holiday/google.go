package holiday

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// OAuthConfig builds the OAuth2 config for read-only calendar access.
// It returns nil when any of the values is empty.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// GoogleImporter turns all-day Google Calendar events into holidays.
type GoogleImporter struct {
	Config *oauth2.Config
}

// Import reads all-day events of calendarID between from and to
// (inclusive). Multi-day events yield one holiday per day.
func (g *GoogleImporter) Import(ctx context.Context, token *oauth2.Token, calendarID string, from, to civil.Date, tenantID string) ([]Holiday, error) {
	client := g.Config.Client(ctx, token)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	var out []Holiday
	call := srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		TimeMin(from.In(time.UTC).Format(time.RFC3339)).
		TimeMax(to.AddDays(1).In(time.UTC).Format(time.RFC3339))
	err = call.Pages(ctx, func(events *calendar.Events) error {
		for _, item := range events.Items {
			out = append(out, eventHolidays(item, from, to, tenantID)...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	return out, nil
}

func eventHolidays(item *calendar.Event, from, to civil.Date, tenantID string) []Holiday {
	if item == nil || item.Status == "cancelled" || item.Start == nil || item.Start.Date == "" {
		return nil
	}
	start, err := civil.ParseDate(item.Start.Date)
	if err != nil {
		return nil
	}
	// all-day end dates are exclusive
	end := start.AddDays(1)
	if item.End != nil && item.End.Date != "" {
		if d, err := civil.ParseDate(item.End.Date); err == nil && d.After(start) {
			end = d
		}
	}

	var out []Holiday
	for d := start; d.Before(end); d = d.AddDays(1) {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, Holiday{
			ID:       uuid.New(),
			TenantID: tenantID,
			Date:     d,
			Name:     item.Summary,
			Source:   SourceGoogle,
		})
	}
	return out
}
