package clinic

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/model"
	"github.com/zentist/clinicdesk/store"
	"github.com/zentist/clinicdesk/tool"
)

// fakeCalendar scripts CalendarService behavior per test.
type fakeCalendar struct {
	freeBusy    func(calendarIDs []string, timeMin, timeMax time.Time) (map[string][]BusyInterval, error)
	createEvent func(calendarID string, event CalendarEvent) (CreatedEvent, error)
	deleteEvent func(calendarID, eventID string) error
}

func (f *fakeCalendar) FreeBusy(_ context.Context, ids []string, timeMin, timeMax time.Time, _ string) (map[string][]BusyInterval, error) {
	return f.freeBusy(ids, timeMin, timeMax)
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calendarID string, event CalendarEvent) (CreatedEvent, error) {
	return f.createEvent(calendarID, event)
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	return f.deleteEvent(calendarID, eventID)
}

// recordingMailer captures outbound mail.
type recordingMailer struct {
	sent    []Email
	failFor string
}

func (m *recordingMailer) Send(_ context.Context, email Email) error {
	if m.failFor != "" && email.To == m.failFor {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func newToolset(t *testing.T, cal CalendarService, mailer Mailer) *Toolset {
	t.Helper()
	appts, err := store.Open(filepath.Join(t.TempDir(), "appointments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { appts.Close() })
	return NewToolset(testConfig(t), cal, appts,
		NewNotifier(mailer, logging.NoOpLogger{}), logging.NoOpLogger{})
}

func toolContext(user auth.User) *tool.Context {
	return tool.NewContext(context.Background(), "conv-1", "call-1",
		SchedulerAgentName, user, logging.NoOpLogger{})
}

func TestCreateAppointmentSuccessPayload(t *testing.T) {
	cal := &fakeCalendar{
		createEvent: func(calendarID string, event CalendarEvent) (CreatedEvent, error) {
			assert.Equal(t, "cal-costa", calendarID)
			assert.Equal(t, "Appointment: Ana Silva - Cleaning", event.Summary)
			assert.Equal(t, "America/New_York", event.Timezone)
			return CreatedEvent{ID: "evt-1", HTMLLink: "https://calendar.example.com/evt-1"}, nil
		},
	}
	ts := newToolset(t, cal, &recordingMailer{})

	result, err := ts.CreateAppointment().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"patient_name":           "Ana Silva",
		"patient_email":          "ana@gmail.com",
		"doctor_email":           "costa@clinic.example.com",
		"start_datetime_iso":     "2026-03-10T14:00:00-04:00",
		"event_duration_minutes": float64(30),
		"service_type":           "Cleaning",
	})
	require.NoError(t, err)

	payload := result.(map[string]any)
	assert.Equal(t, "success", payload["status"])
	details := payload["appointment_details"].(map[string]any)
	assert.Equal(t, "Dr. Costa", details["doctor_name"])
	assert.Equal(t, "evt-1", details["google_calendar_event_id"])
	assert.Equal(t, "https://calendar.example.com/evt-1", details["google_calendar_event_link"])
	assert.Contains(t, details["patient_add_to_calendar_link"], "google.com/calendar/render")
}

func TestCreateAppointmentUnknownDoctor(t *testing.T) {
	ts := newToolset(t, &fakeCalendar{}, &recordingMailer{})

	result, err := ts.CreateAppointment().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"patient_name":           "Ana Silva",
		"patient_email":          "ana@gmail.com",
		"doctor_email":           "nobody@clinic.example.com",
		"start_datetime_iso":     "2026-03-10T14:00:00-04:00",
		"event_duration_minutes": float64(30),
		"service_type":           "Cleaning",
	})
	require.NoError(t, err)
	assert.Equal(t, "error", result.(map[string]any)["status"])
}

func TestCreateAppointmentCalendarFailureBecomesStatusError(t *testing.T) {
	cal := &fakeCalendar{
		createEvent: func(string, CalendarEvent) (CreatedEvent, error) {
			return CreatedEvent{}, errors.New("quota exceeded")
		},
	}
	ts := newToolset(t, cal, &recordingMailer{})

	result, err := ts.CreateAppointment().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"patient_name":           "Ana Silva",
		"patient_email":          "ana@gmail.com",
		"doctor_email":           "costa@clinic.example.com",
		"start_datetime_iso":     "2026-03-10T14:00:00-04:00",
		"event_duration_minutes": float64(30),
		"service_type":           "Cleaning",
	})
	require.NoError(t, err)
	payload := result.(map[string]any)
	assert.Equal(t, "error", payload["status"])
	assert.Contains(t, payload["message"], "quota exceeded")
}

func TestFindFreeSlotsReturnsRawBusyData(t *testing.T) {
	cal := &fakeCalendar{
		freeBusy: func(ids []string, _, _ time.Time) (map[string][]BusyInterval, error) {
			assert.Equal(t, []string{"cal-costa"}, ids)
			return map[string][]BusyInterval{
				"cal-costa": {{Start: "2026-03-10T14:00:00Z", End: "2026-03-10T14:30:00Z"}},
			}, nil
		},
	}
	ts := newToolset(t, cal, &recordingMailer{})

	result, err := ts.FindFreeSlots().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"doctor_email": "costa@clinic.example.com",
		"time_min":     "2026-03-10T09:00:00-04:00",
		"time_max":     "2026-03-10T17:00:00-04:00",
	})
	require.NoError(t, err)
	payload := result.(map[string]any)
	assert.Equal(t, "success", payload["status"])
	busy := payload["data"].(map[string][]BusyInterval)
	require.Len(t, busy["cal-costa"], 1)
}

func TestFindUpcomingAppointmentsScopedToUser(t *testing.T) {
	ts := newToolset(t, &fakeCalendar{}, &recordingMailer{})
	ctx := context.Background()
	future := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	seed := func(patientID, eventID string, start time.Time) {
		_, err := ts.appointments.Insert(ctx, store.AppointmentRecord{
			PatientSupabaseID: patientID, PatientName: "x", PatientEmail: "x@gmail.com",
			DoctorName: "Dr. Costa", DoctorEmail: "costa@clinic.example.com",
			ClinicAddress: "12 Main St", ServiceType: "Cleaning",
			StartTime: start, EndTime: start.Add(30 * time.Minute),
			GoogleCalendarEventID: eventID,
		})
		require.NoError(t, err)
	}
	seed("u-1", "evt-mine", future)
	seed("u-1", "evt-past", time.Now().Add(-48*time.Hour))
	seed("u-2", "evt-other", future.Add(time.Hour))

	result, err := ts.FindUpcomingAppointments().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{})
	require.NoError(t, err)

	payload := result.(map[string]any)
	appts := payload["appointments"].([]map[string]any)
	require.Len(t, appts, 1)
	assert.Equal(t, "Cleaning", appts[0]["service_type"])
}

func TestCancelAppointmentOwnershipAndCleanup(t *testing.T) {
	var deletedEventID string
	cal := &fakeCalendar{
		deleteEvent: func(calendarID, eventID string) error {
			assert.Equal(t, "cal-costa", calendarID)
			deletedEventID = eventID
			return nil
		},
	}
	ts := newToolset(t, cal, &recordingMailer{})
	ctx := context.Background()

	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	rec, err := ts.appointments.Insert(ctx, store.AppointmentRecord{
		PatientSupabaseID: "u-1", PatientName: "Ana", PatientEmail: "ana@gmail.com",
		DoctorName: "Dr. Costa", DoctorEmail: "costa@clinic.example.com",
		ClinicAddress: "12 Main St", ServiceType: "Cleaning",
		StartTime: start, EndTime: start.Add(30 * time.Minute),
		GoogleCalendarEventID: "evt-1",
	})
	require.NoError(t, err)

	// Another patient cannot cancel it.
	result, err := ts.CancelAppointment().Call(toolContext(auth.User{ID: "u-2"}),
		map[string]any{"appointment_id": rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "error", result.(map[string]any)["status"])
	assert.Empty(t, deletedEventID)

	// The owner can.
	result, err = ts.CancelAppointment().Call(toolContext(auth.User{ID: "u-1"}),
		map[string]any{"appointment_id": rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "success", result.(map[string]any)["status"])
	assert.Equal(t, "evt-1", deletedEventID)

	remaining, err := ts.appointments.ListByPatient(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSendBookingConfirmationPartialFailure(t *testing.T) {
	mailer := &recordingMailer{failFor: "costa@clinic.example.com"}
	ts := newToolset(t, &fakeCalendar{}, mailer)

	result, err := ts.SendBookingConfirmation().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"patient_name":                 "Ana Silva",
		"patient_email":                "ana@gmail.com",
		"doctor_name":                  "Dr. Costa",
		"doctor_email":                 "costa@clinic.example.com",
		"clinic_address":               "12 Main St",
		"start_time_iso":               "2026-03-10T14:00:00-04:00",
		"end_time_iso":                 "2026-03-10T14:30:00-04:00",
		"service_type":                 "Cleaning",
		"google_event_link":            "https://calendar.example.com/evt-1",
		"patient_add_to_calendar_link": "https://www.google.com/calendar/render?x=1",
	})
	require.NoError(t, err)

	payload := result.(map[string]any)
	assert.Equal(t, "partial_failure", payload["status"])
	// The patient email still went out.
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@gmail.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].HTML, "Ana Silva")
	assert.Contains(t, mailer.sent[0].HTML, "Your Appointment is Confirmed!")
}

func TestSendCancellationEmail(t *testing.T) {
	mailer := &recordingMailer{}
	ts := newToolset(t, &fakeCalendar{}, mailer)

	result, err := ts.SendCancellationEmail().Call(toolContext(auth.User{ID: "u-1"}), map[string]any{
		"patient_name":   "Ana Silva",
		"patient_email":  "ana@gmail.com",
		"service_type":   "Cleaning",
		"start_time_iso": "2026-03-10T14:00:00-04:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.(map[string]any)["status"])
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTML, "Appointment Canceled")
}

func TestBuildRegistryTopology(t *testing.T) {
	ts := newToolset(t, &fakeCalendar{}, &recordingMailer{})
	registry, err := BuildRegistry(testConfig(t), ts, model.NewScriptedModel())
	require.NoError(t, err)

	assert.Equal(t, ReceptionistAgentName, registry.Fallback())
	assert.Equal(t, ReceptionistAgentName, registry.Resolve("").Name)

	scheduler, ok := registry.Get(SchedulerAgentName)
	require.True(t, ok)
	_, hasCreate := scheduler.FindTool("create_appointment")
	assert.True(t, hasCreate)
	assert.Empty(t, scheduler.Handoffs)

	canceling, ok := registry.Get(CancelingAgentName)
	require.True(t, ok)
	_, hasCancel := canceling.FindTool("cancel_appointment")
	assert.True(t, hasCancel)
	assert.Equal(t, []string{ReceptionistAgentName}, canceling.Handoffs)
}

func TestPromptsEmbedClinicAndUser(t *testing.T) {
	cfg := testConfig(t)
	user := auth.User{ID: "u-1", Email: "ana@gmail.com"}

	receptionist := cfg.ReceptionistInstructions().Resolve(user)
	assert.Contains(t, receptionist, "Bright Smiles Dental")
	assert.Contains(t, receptionist, "(555) 125-4567")
	assert.Contains(t, receptionist, "Scheduler Agent")
	assert.Contains(t, receptionist, "ana@gmail.com")
	assert.Contains(t, receptionist, "Current System Time")

	scheduler := cfg.SchedulerInstructions().Resolve(user)
	assert.Contains(t, scheduler, "GOLDEN RULE")
	assert.Contains(t, scheduler, "find_free_slots")
	assert.Contains(t, scheduler, "Teeth Whitening")

	canceling := cfg.CancelingInstructions().Resolve(user)
	assert.Contains(t, canceling, "find_upcoming_appointments")
	assert.Contains(t, canceling, "Receptionist Agent")
}
