package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hackgods/salon-booking/internal/logging"
)

func TestIsStatus(t *testing.T) {
	conflict := fmt.Errorf("insert: %w", &googleapi.Error{Code: http.StatusConflict})

	if !isStatus(conflict, http.StatusConflict) {
		t.Fatal("wrapped 409 not detected")
	}
	if isStatus(conflict, http.StatusNotFound) {
		t.Fatal("409 matched as 404")
	}
	if isStatus(errors.New("boom"), http.StatusConflict) {
		t.Fatal("plain error matched")
	}
}

// fakeCalendar serves the Events endpoints of one calendar.
type fakeCalendar struct {
	mu           sync.Mutex
	inserted     []map[string]any
	query        map[string]string
	existing     map[string]bool
	listItems    []*gcal.Event
	deleteStatus int
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *Client) {
	t.Helper()
	f := &fakeCalendar{existing: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(data, &body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.query = map[string]string{"sendUpdates": r.URL.Query().Get("sendUpdates")}
		id, _ := body["id"].(string)
		if f.existing[id] {
			writeGoogleError(w, http.StatusConflict)
			return
		}
		f.inserted = append(f.inserted, body)
		f.existing[id] = true
		writeEvent(w, id)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := f.existing[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeGoogleError(w, http.StatusNotFound)
			return
		}
		writeEvent(w, r.PathValue("id"))
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		f.query = map[string]string{
			"timeMin":      q.Get("timeMin"),
			"timeMax":      q.Get("timeMax"),
			"singleEvents": q.Get("singleEvents"),
		}
		items := f.listItems
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&gcal.Events{Items: items})
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.deleteStatus
		f.mu.Unlock()
		if status != 0 {
			writeGoogleError(w, status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := newWithOptions(context.Background(), "primary", logging.Discard(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return f, c
}

func writeEvent(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&gcal.Event{Id: id, HtmlLink: "https://calendar.example/" + id})
}

func writeGoogleError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, code, http.StatusText(code))
}

func testEvent() Event {
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	return Event{
		ID:          "0123456789abcdef0123456789abcdef",
		Summary:     "Lucía Pérez - Corte de Pelo",
		Description: "Servicio: Corte de Pelo",
		Start:       start,
		End:         start.Add(45 * time.Minute),
		TimeZone:    "Europe/Madrid",
		Attendees:   []string{"salon@example.com", "", "lucia@example.com"},
	}
}

func TestInsertEventPayload(t *testing.T) {
	f, c := newFakeCalendar(t)

	created, err := c.InsertEvent(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID != testEvent().ID || created.HTMLLink != "https://calendar.example/"+testEvent().ID {
		t.Fatalf("unexpected created %+v", created)
	}
	if f.query["sendUpdates"] != "all" {
		t.Errorf("sendUpdates = %q", f.query["sendUpdates"])
	}
	if len(f.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(f.inserted))
	}
	body := f.inserted[0]

	if body["colorId"] != "9" {
		t.Errorf("colorId = %v", body["colorId"])
	}
	start, _ := body["start"].(map[string]any)
	if start["dateTime"] != "2026-10-20T10:00:00Z" || start["timeZone"] != "Europe/Madrid" {
		t.Errorf("start = %v", start)
	}

	attendees, _ := body["attendees"].([]any)
	if len(attendees) != 2 {
		t.Fatalf("empty attendee not filtered: %v", attendees)
	}

	reminders, _ := body["reminders"].(map[string]any)
	useDefault, sent := reminders["useDefault"]
	if !sent || useDefault != false {
		t.Errorf("useDefault must be sent as false, got %v (sent=%v)", useDefault, sent)
	}
	overrides, _ := reminders["overrides"].([]any)
	want := []struct {
		method  string
		minutes float64
	}{{"email", 1440}, {"popup", 10}}
	if len(overrides) != len(want) {
		t.Fatalf("overrides = %v", overrides)
	}
	for i, w := range want {
		o, _ := overrides[i].(map[string]any)
		if o["method"] != w.method || o["minutes"] != w.minutes {
			t.Errorf("override %d = %v, want %s %v", i, o, w.method, w.minutes)
		}
	}
}

func TestInsertEventReusesExisting(t *testing.T) {
	f, c := newFakeCalendar(t)
	f.existing[testEvent().ID] = true

	created, err := c.InsertEvent(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID != testEvent().ID {
		t.Fatalf("expected the existing event, got %+v", created)
	}
	if len(f.inserted) != 0 {
		t.Errorf("conflicting insert should not be recorded")
	}
}

func TestBusyIgnoresCancelledAndTransparent(t *testing.T) {
	f, c := newFakeCalendar(t)
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	f.listItems = []*gcal.Event{
		{Id: "a", Status: "cancelled"},
		{Id: "b", Status: "confirmed", Transparency: "transparent"},
	}
	busy, err := c.Busy(context.Background(), start, end)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if busy {
		t.Fatal("cancelled and transparent events must not block the slot")
	}
	if f.query["timeMin"] != "2026-10-20T10:00:00Z" || f.query["timeMax"] != "2026-10-20T11:00:00Z" || f.query["singleEvents"] != "true" {
		t.Errorf("list query = %v", f.query)
	}

	f.listItems = append(f.listItems, &gcal.Event{Id: "c", Status: "confirmed"})
	busy, err = c.Busy(context.Background(), start, end)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if !busy {
		t.Fatal("opaque event should block the slot")
	}
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"deleted", 0, false},
		{"not found", http.StatusNotFound, false},
		{"gone", http.StatusGone, false},
		{"rejected", http.StatusBadRequest, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeCalendar(t)
			f.deleteStatus = tt.status

			err := c.DeleteEvent(context.Background(), "abcdef12345")
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeleteEvent error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
