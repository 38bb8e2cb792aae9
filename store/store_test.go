package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *AppointmentStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "appointments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(start time.Time) AppointmentRecord {
	return AppointmentRecord{
		PatientSupabaseID:       "user-1",
		PatientName:             "Ana Silva",
		PatientEmail:            "ana@example.com",
		DoctorName:              "Dr. Costa",
		DoctorEmail:             "costa@clinic.example.com",
		ClinicAddress:           "12 Main St",
		ServiceType:             "cleaning",
		StartTime:               start,
		EndTime:                 start.Add(30 * time.Minute),
		GoogleCalendarEventID:   "evt-" + start.Format("150405"),
		GoogleCalendarEventLink: "https://calendar.example.com/evt",
	}
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	s := openStore(t)
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	rec, err := s.Insert(context.Background(), sampleRecord(start))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestInsertRejectsInvertedTimes(t *testing.T) {
	s := openStore(t)
	rec := sampleRecord(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	rec.EndTime = rec.StartTime

	_, err := s.Insert(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_time must precede end_time")
}

func TestInsertRejectsDuplicateCalendarEvent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	rec := sampleRecord(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))

	_, err := s.Insert(ctx, rec)
	require.NoError(t, err)
	_, err = s.Insert(ctx, rec)
	require.Error(t, err)
}

func TestListByPatientOrdered(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Insert out of order.
	later := sampleRecord(base.Add(4 * time.Hour))
	earlier := sampleRecord(base)
	_, err := s.Insert(ctx, later)
	require.NoError(t, err)
	_, err = s.Insert(ctx, earlier)
	require.NoError(t, err)

	other := sampleRecord(base.Add(time.Hour))
	other.PatientSupabaseID = "user-2"
	other.GoogleCalendarEventID = "evt-other"
	_, err = s.Insert(ctx, other)
	require.NoError(t, err)

	got, err := s.ListByPatient(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartTime.Before(got[1].StartTime))
	assert.Equal(t, base, got[0].StartTime)
}

func TestListByDoctorWindow(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	inside := sampleRecord(base.Add(time.Hour))
	before := sampleRecord(base.Add(-2 * time.Hour))
	before.GoogleCalendarEventID = "evt-before"
	after := sampleRecord(base.Add(26 * time.Hour))
	after.GoogleCalendarEventID = "evt-after"
	for _, rec := range []AppointmentRecord{inside, before, after} {
		_, err := s.Insert(ctx, rec)
		require.NoError(t, err)
	}

	got, err := s.ListByDoctor(ctx, "costa@clinic.example.com", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.GoogleCalendarEventID, got[0].GoogleCalendarEventID)
}

func TestDeleteByCalendarEventID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	rec := sampleRecord(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	_, err := s.Insert(ctx, rec)
	require.NoError(t, err)

	deleted, err := s.DeleteByCalendarEventID(ctx, rec.GoogleCalendarEventID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteByCalendarEventID(ctx, rec.GoogleCalendarEventID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := s.ListByPatient(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
