// Package calendar is the scheduling gateway backed by Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hackgods/salon-booking/internal/config"
)

var ErrEventNotFound = errors.New("calendar event not found")

type Event struct {
	// ID is chosen by the caller; Google accepts [a-v0-9]{5,1024}, so a hex
	// encoded uuid is valid and makes retried inserts collide instead of duplicating.
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

type Created struct {
	ID       string
	HTMLLink string
}

type Client struct {
	svc        *gcal.Service
	calendarID string
	log        *slog.Logger
}

func New(ctx context.Context, cfg config.CalendarConfig, logger *slog.Logger) (*Client, error) {
	if cfg.OAuthClientID == "" || cfg.OAuthRefreshToken == "" {
		return nil, errors.New("GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_REFRESH_TOKEN are required")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})

	return newWithOptions(ctx, cfg.CalendarID, logger, option.WithTokenSource(ts))
}

func newWithOptions(ctx context.Context, calendarID string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &Client{svc: svc, calendarID: calendarID, log: logger}, nil
}

// InsertEvent creates the event with owner/customer attendees, a 24h email
// reminder and a 10 minute popup.
func (c *Client) InsertEvent(ctx context.Context, ev Event) (*Created, error) {
	attendees := make([]*gcal.EventAttendee, 0, len(ev.Attendees))
	for _, email := range ev.Attendees {
		if email != "" {
			attendees = append(attendees, &gcal.EventAttendee{Email: email})
		}
	}

	event := &gcal.Event{
		Id:          ev.ID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
		Attendees:   attendees,
		ColorId:     "9",
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	out, err := c.svc.Events.Insert(c.calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusConflict) && ev.ID != "" {
			// a previous attempt with this id already landed
			c.log.Info("calendar event already exists, reusing", "event_id", ev.ID)
			return c.getEvent(ctx, ev.ID)
		}
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	return &Created{ID: out.Id, HTMLLink: out.HtmlLink}, nil
}

func (c *Client) getEvent(ctx context.Context, id string) (*Created, error) {
	out, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusGone) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return &Created{ID: out.Id, HTMLLink: out.HtmlLink}, nil
}

// Busy reports whether any opaque, non-cancelled event overlaps [start, end).
func (c *Client) Busy(ctx context.Context, start, end time.Time) (bool, error) {
	list, err := c.svc.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		MaxResults(10).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("list calendar events: %w", err)
	}

	for _, item := range list.Items {
		if item.Status == "cancelled" || item.Transparency == "transparent" {
			continue
		}
		return true, nil
	}
	return false, nil
}

// DeleteEvent removes the event; a missing event is not an error.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	err := c.svc.Events.Delete(c.calendarID, id).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusGone) {
			return nil
		}
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// Ping checks that the configured calendar is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Events.List(c.calendarID).MaxResults(1).Context(ctx).Do()
	return err
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
