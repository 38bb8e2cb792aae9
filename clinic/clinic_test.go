package clinic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Name:     "Bright Smiles Dental",
		Address:  "12 Main St, Springfield",
		Phone:    "(555) 125-4567",
		Timezone: "America/New_York",
		Hours: map[string]string{
			"Monday": "9:00 AM - 5:00 PM",
			"Sunday": "Closed",
		},
		Doctors: []Doctor{
			{Name: "Dr. Costa", Specialty: "Orthodontics", Email: "costa@clinic.example.com", CalendarID: "cal-costa"},
		},
		Services: map[string]int{"Cleaning": 30, "Teeth Whitening": 60},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Bright Smiles Dental
address: 12 Main St, Springfield
phone: (555) 125-4567
timezone: America/New_York
hours:
  Monday: 9:00 AM - 5:00 PM
doctors:
  - name: Dr. Costa
    specialty: Orthodontics
    email: costa@clinic.example.com
    calendar_id: cal-costa
services:
  Cleaning: 30
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Bright Smiles Dental", cfg.Name)
	assert.Equal(t, "America/New_York", cfg.Location().String())

	doctor, ok := cfg.FindDoctorByEmail("costa@clinic.example.com")
	require.True(t, ok)
	assert.Equal(t, "cal-costa", doctor.CalendarID)

	duration, ok := cfg.ServiceDuration("Cleaning")
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, duration)
}

func TestConfigValidateRejectsBadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Mars/Olympus_Mons"
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsIncompleteDoctor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Doctors = []Doctor{{Name: "Dr. Nobody"}}
	require.Error(t, cfg.Validate())
}

func TestAddToCalendarLink(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	link := AddToCalendarLink("Appointment: Ana - Cleaning", start, start.Add(30*time.Minute),
		"details", "12 Main St", "America/New_York")

	assert.Contains(t, link, "https://www.google.com/calendar/render?")
	assert.Contains(t, link, "action=TEMPLATE")
	assert.Contains(t, link, "dates=20260310T140000Z%2F20260310T143000Z")
	assert.Contains(t, link, "ctz=America%2FNew_York")
}

func TestGoogleCalendarFreeBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/freeBusy", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		w.Write([]byte(`{"calendars":{"cal-costa":{"busy":[{"start":"2026-03-10T14:00:00Z","end":"2026-03-10T14:30:00Z"}]}}}`))
	}))
	defer srv.Close()

	gc := NewGoogleCalendar(srv.URL, "tkn", 0)
	busy, err := gc.FreeBusy(context.Background(), []string{"cal-costa"},
		time.Now(), time.Now().Add(8*time.Hour), "America/New_York")
	require.NoError(t, err)
	require.Len(t, busy["cal-costa"], 1)
	assert.Equal(t, "2026-03-10T14:00:00Z", busy["cal-costa"][0].Start)
}

func TestGoogleCalendarCreateAndDeleteEvent(t *testing.T) {
	var deletedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/calendars/cal-costa/events", r.URL.Path)
			assert.Equal(t, "all", r.URL.Query().Get("sendUpdates"))
			w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.example.com/evt-1"}`))
		case http.MethodDelete:
			deletedPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	gc := NewGoogleCalendar(srv.URL, "tkn", 0)
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	created, err := gc.CreateEvent(context.Background(), "cal-costa", CalendarEvent{
		Summary: "Appointment", Start: start, End: start.Add(30 * time.Minute),
		Timezone: "America/New_York",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
	assert.Equal(t, "https://calendar.example.com/evt-1", created.HTMLLink)

	require.NoError(t, gc.DeleteEvent(context.Background(), "cal-costa", "evt-1"))
	assert.Equal(t, "/calendars/cal-costa/events/evt-1", deletedPath)
}

func TestGoogleCalendarSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	gc := NewGoogleCalendar(srv.URL, "tkn", 0)
	_, err := gc.FreeBusy(context.Background(), []string{"x"}, time.Now(), time.Now(), "UTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestSendGridMailerSend(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer(srv.URL, "sg-key", "Bright Smiles", "noreply@clinic.example.com")
	err := m.Send(context.Background(), Email{
		To: "ana@example.com", ToName: "Ana", Subject: "Hi", HTML: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", gotAuth)
}
