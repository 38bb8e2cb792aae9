// Package store persists booked appointments. Each successfully created
// calendar event yields exactly one AppointmentRecord.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AppointmentRecord is one booked appointment row.
type AppointmentRecord struct {
	ID                      string    `json:"id"`
	PatientSupabaseID       string    `json:"patient_supabase_id"`
	PatientName             string    `json:"patient_name"`
	PatientEmail            string    `json:"patient_email"`
	DoctorName              string    `json:"doctor_name"`
	DoctorEmail             string    `json:"doctor_email"`
	ClinicAddress           string    `json:"clinic_address"`
	ServiceType             string    `json:"service_type"`
	StartTime               time.Time `json:"start_time"`
	EndTime                 time.Time `json:"end_time"`
	GoogleCalendarEventID   string    `json:"google_calendar_event_id"`
	GoogleCalendarEventLink string    `json:"google_calendar_event_link,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// AppointmentStore stores appointment records in SQLite.
type AppointmentStore struct {
	db *sql.DB
}

// Open opens (or creates) the appointment database at path and ensures the
// schema.
func Open(path string) (*AppointmentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS appointments (
			id                         TEXT PRIMARY KEY,
			patient_supabase_id        TEXT NOT NULL,
			patient_name               TEXT NOT NULL,
			patient_email              TEXT NOT NULL,
			doctor_name                TEXT NOT NULL,
			doctor_email               TEXT NOT NULL,
			clinic_address             TEXT NOT NULL,
			service_type               TEXT NOT NULL,
			start_time                 TEXT NOT NULL,
			end_time                   TEXT NOT NULL,
			google_calendar_event_id   TEXT NOT NULL UNIQUE,
			google_calendar_event_link TEXT NOT NULL DEFAULT '',
			created_at                 TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient
			ON appointments (patient_supabase_id, start_time);
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor
			ON appointments (doctor_email, start_time)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &AppointmentStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *AppointmentStore) Close() error { return s.db.Close() }

// Insert persists a record inside a transaction. An empty ID is assigned; an
// empty CreatedAt is set to now. Records with StartTime not strictly before
// EndTime are rejected.
func (s *AppointmentStore) Insert(ctx context.Context, rec AppointmentRecord) (AppointmentRecord, error) {
	if !rec.StartTime.Before(rec.EndTime) {
		return AppointmentRecord{}, fmt.Errorf("store: start_time must precede end_time")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AppointmentRecord{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (
			id, patient_supabase_id, patient_name, patient_email,
			doctor_name, doctor_email, clinic_address, service_type,
			start_time, end_time,
			google_calendar_event_id, google_calendar_event_link, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PatientSupabaseID, rec.PatientName, rec.PatientEmail,
		rec.DoctorName, rec.DoctorEmail, rec.ClinicAddress, rec.ServiceType,
		rec.StartTime.UTC().Format(time.RFC3339), rec.EndTime.UTC().Format(time.RFC3339),
		rec.GoogleCalendarEventID, rec.GoogleCalendarEventLink,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return AppointmentRecord{}, fmt.Errorf("store: insert appointment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AppointmentRecord{}, fmt.Errorf("store: commit: %w", err)
	}
	return rec, nil
}

// ListByPatient returns the patient's appointments ordered by start time.
func (s *AppointmentStore) ListByPatient(ctx context.Context, patientSupabaseID string) ([]AppointmentRecord, error) {
	return s.list(ctx, `
		SELECT `+columns+` FROM appointments
		WHERE patient_supabase_id = ?
		ORDER BY start_time ASC`, patientSupabaseID)
}

// ListByDoctor returns a doctor's appointments overlapping [from, to),
// ordered by start time.
func (s *AppointmentStore) ListByDoctor(ctx context.Context, doctorEmail string, from, to time.Time) ([]AppointmentRecord, error) {
	return s.list(ctx, `
		SELECT `+columns+` FROM appointments
		WHERE doctor_email = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC`,
		doctorEmail, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

// GetByID returns a single appointment record.
func (s *AppointmentStore) GetByID(ctx context.Context, id string) (AppointmentRecord, bool, error) {
	recs, err := s.list(ctx, `
		SELECT `+columns+` FROM appointments WHERE id = ?`, id)
	if err != nil {
		return AppointmentRecord{}, false, err
	}
	if len(recs) == 0 {
		return AppointmentRecord{}, false, nil
	}
	return recs[0], true, nil
}

// DeleteByID removes a record by primary key, reporting whether a row was
// deleted.
func (s *AppointmentStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("store: delete appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete appointment: %w", err)
	}
	return n > 0, nil
}

// DeleteByCalendarEventID removes the record tied to a calendar event,
// reporting whether a row was deleted.
func (s *AppointmentStore) DeleteByCalendarEventID(ctx context.Context, eventID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM appointments WHERE google_calendar_event_id = ?", eventID)
	if err != nil {
		return false, fmt.Errorf("store: delete appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete appointment: %w", err)
	}
	return n > 0, nil
}

const columns = `id, patient_supabase_id, patient_name, patient_email,
	doctor_name, doctor_email, clinic_address, service_type,
	start_time, end_time, google_calendar_event_id, google_calendar_event_link,
	created_at`

func (s *AppointmentStore) list(ctx context.Context, query string, args ...any) ([]AppointmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()

	var out []AppointmentRecord
	for rows.Next() {
		var rec AppointmentRecord
		var start, end, created string
		if err := rows.Scan(
			&rec.ID, &rec.PatientSupabaseID, &rec.PatientName, &rec.PatientEmail,
			&rec.DoctorName, &rec.DoctorEmail, &rec.ClinicAddress, &rec.ServiceType,
			&start, &end, &rec.GoogleCalendarEventID, &rec.GoogleCalendarEventLink,
			&created,
		); err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		if rec.StartTime, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("store: parse start_time: %w", err)
		}
		if rec.EndTime, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("store: parse end_time: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("store: parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
