package clinic

import (
	"fmt"
	"time"

	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/store"
	"github.com/zentist/clinicdesk/tool"
)

// Toolset builds the clinic's agent tools over shared dependencies. External
// service failures are reported back to the model as status maps rather than
// tool errors, so the agent can apologize or retry.
type Toolset struct {
	cfg          *Config
	calendar     CalendarService
	appointments *store.AppointmentStore
	notifier     *Notifier
	logger       logging.Logger
}

// NewToolset wires the tool dependencies together.
func NewToolset(
	cfg *Config,
	calendar CalendarService,
	appointments *store.AppointmentStore,
	notifier *Notifier,
	logger logging.Logger,
) *Toolset {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Toolset{
		cfg:          cfg,
		calendar:     calendar,
		appointments: appointments,
		notifier:     notifier,
		logger:       logger,
	}
}

func errorResult(format string, args ...any) map[string]any {
	return map[string]any{"status": "error", "message": fmt.Sprintf(format, args...)}
}

// FindFreeSlots checks the doctor's calendar for busy intervals in a window.
// The raw busy data is returned; the agent reasons about openings itself.
func (ts *Toolset) FindFreeSlots() tool.Tool {
	return tool.NewFunctionTool(
		"find_free_slots",
		"Check a doctor's Google Calendar for busy times within a window. Returns the raw busy intervals.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"doctor_email": map[string]any{
					"type":        "string",
					"description": "Email of the doctor whose calendar to check",
				},
				"time_min": map[string]any{
					"type":        "string",
					"description": "Start of the search window, ISO 8601",
				},
				"time_max": map[string]any{
					"type":        "string",
					"description": "End of the search window, ISO 8601",
				},
			},
			"required": []string{"doctor_email", "time_min", "time_max"},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			doctor, ok := ts.cfg.FindDoctorByEmail(args["doctor_email"].(string))
			if !ok {
				return errorResult("no doctor with email %s", args["doctor_email"]), nil
			}
			timeMin, err := time.Parse(time.RFC3339, args["time_min"].(string))
			if err != nil {
				return errorResult("time_min is not valid ISO 8601: %v", err), nil
			}
			timeMax, err := time.Parse(time.RFC3339, args["time_max"].(string))
			if err != nil {
				return errorResult("time_max is not valid ISO 8601: %v", err), nil
			}

			busy, err := ts.calendar.FreeBusy(tc.Context(),
				[]string{doctor.CalendarID}, timeMin, timeMax, ts.cfg.Timezone)
			if err != nil {
				ts.logger.Error("clinic.free_slots.failed", "doctor", doctor.Email, "error", err.Error())
				return errorResult("Failed to check calendar availability: %v", err), nil
			}
			return map[string]any{"status": "success", "data": busy}, nil
		},
	)
}

// CreateAppointment books a calendar event for a confirmed slot. Database
// synchronization happens downstream, keyed off this tool's success payload.
func (ts *Toolset) CreateAppointment() tool.Tool {
	return tool.NewFunctionTool(
		"create_appointment",
		"Create a confirmed appointment in the doctor's Google Calendar.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"patient_name":  map[string]any{"type": "string", "description": "Full name of the patient"},
				"patient_email": map[string]any{"type": "string", "description": "Email address of the patient"},
				"doctor_email":  map[string]any{"type": "string", "description": "Email of the doctor to book with"},
				"start_datetime_iso": map[string]any{
					"type":        "string",
					"description": "Appointment start time, ISO 8601",
				},
				"event_duration_minutes": map[string]any{
					"type":        "integer",
					"description": "Duration of the appointment in minutes",
				},
				"service_type": map[string]any{"type": "string", "description": "Type of service, e.g. 'Teeth Whitening'"},
			},
			"required": []string{
				"patient_name", "patient_email", "doctor_email",
				"start_datetime_iso", "event_duration_minutes", "service_type",
			},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			doctor, ok := ts.cfg.FindDoctorByEmail(args["doctor_email"].(string))
			if !ok {
				return errorResult("Incorrect doctor email provided."), nil
			}

			start, err := time.Parse(time.RFC3339, args["start_datetime_iso"].(string))
			if err != nil {
				return errorResult("start_datetime_iso is not valid ISO 8601: %v", err), nil
			}
			start = start.In(ts.cfg.Location())
			duration := time.Duration(args["event_duration_minutes"].(float64)) * time.Minute
			if duration <= 0 {
				return errorResult("event_duration_minutes must be positive"), nil
			}
			end := start.Add(duration)

			patientName := args["patient_name"].(string)
			patientEmail := args["patient_email"].(string)
			serviceType := args["service_type"].(string)
			summary := fmt.Sprintf("Appointment: %s - %s", patientName, serviceType)
			description := fmt.Sprintf("Patient: %s\nEmail: %s\nService: %s",
				patientName, patientEmail, serviceType)

			created, err := ts.calendar.CreateEvent(tc.Context(), doctor.CalendarID, CalendarEvent{
				Summary:     summary,
				Description: description,
				Location:    ts.cfg.Address,
				Start:       start,
				End:         end,
				Timezone:    ts.cfg.Timezone,
			})
			if err != nil {
				ts.logger.Error("clinic.create_appointment.failed",
					"doctor", doctor.Email, "error", err.Error())
				return errorResult("Failed to create appointment: %v", err), nil
			}

			ts.logger.Info("clinic.appointment.created",
				"conversation_id", tc.ConversationID(),
				"doctor", doctor.Email, "event_id", created.ID)

			return map[string]any{
				"status":  "success",
				"message": "Appointment created successfully.",
				"appointment_details": map[string]any{
					"patient_name":               patientName,
					"patient_email":              patientEmail,
					"doctor_name":                doctor.Name,
					"doctor_email":               doctor.Email,
					"clinic_address":             ts.cfg.Address,
					"start_time":                 start.Format(time.RFC3339),
					"end_time":                   end.Format(time.RFC3339),
					"service_type":               serviceType,
					"google_calendar_event_id":   created.ID,
					"google_calendar_event_link": created.HTMLLink,
					"patient_add_to_calendar_link": AddToCalendarLink(
						summary, start, end, description, ts.cfg.Address, ts.cfg.Timezone),
				},
			}, nil
		},
	)
}

// SendBookingConfirmation emails the patient and the doctor about a new
// booking.
func (ts *Toolset) SendBookingConfirmation() tool.Tool {
	return tool.NewFunctionTool(
		"send_booking_confirmation",
		"Send booking confirmation emails to both the patient and the doctor.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"patient_name":                 map[string]any{"type": "string"},
				"patient_email":                map[string]any{"type": "string"},
				"doctor_name":                  map[string]any{"type": "string"},
				"doctor_email":                 map[string]any{"type": "string"},
				"clinic_address":               map[string]any{"type": "string"},
				"start_time_iso":               map[string]any{"type": "string"},
				"end_time_iso":                 map[string]any{"type": "string"},
				"service_type":                 map[string]any{"type": "string"},
				"google_event_link":            map[string]any{"type": "string"},
				"patient_add_to_calendar_link": map[string]any{"type": "string"},
			},
			"required": []string{
				"patient_name", "patient_email", "doctor_name", "doctor_email",
				"clinic_address", "start_time_iso", "end_time_iso", "service_type",
				"google_event_link", "patient_add_to_calendar_link",
			},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			start, err := time.Parse(time.RFC3339, args["start_time_iso"].(string))
			if err != nil {
				return errorResult("start_time_iso is not valid ISO 8601: %v", err), nil
			}
			end, err := time.Parse(time.RFC3339, args["end_time_iso"].(string))
			if err != nil {
				return errorResult("end_time_iso is not valid ISO 8601: %v", err), nil
			}

			overall, statuses, err := ts.notifier.SendBookingConfirmation(tc.Context(), BookingDetails{
				PatientName:       args["patient_name"].(string),
				PatientEmail:      args["patient_email"].(string),
				DoctorName:        args["doctor_name"].(string),
				DoctorEmail:       args["doctor_email"].(string),
				ClinicAddress:     args["clinic_address"].(string),
				ServiceType:       args["service_type"].(string),
				Start:             start.In(ts.cfg.Location()),
				End:               end.In(ts.cfg.Location()),
				EventLink:         args["google_event_link"].(string),
				AddToCalendarLink: args["patient_add_to_calendar_link"].(string),
			})
			if err != nil {
				return errorResult("Failed during email preparation: %v", err), nil
			}
			return map[string]any{
				"status":         overall,
				"message":        "Email confirmation process finished.",
				"email_statuses": statuses,
			}, nil
		},
	)
}

// FindUpcomingAppointments lists the authenticated patient's future
// appointments. Identity comes from the verified token, never from the model.
func (ts *Toolset) FindUpcomingAppointments() tool.Tool {
	return tool.NewFunctionTool(
		"find_upcoming_appointments",
		"Securely list the current patient's upcoming appointments.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *tool.Context, args map[string]any) (any, error) {
			recs, err := ts.appointments.ListByPatient(tc.Context(), tc.User().ID)
			if err != nil {
				ts.logger.Error("clinic.find_appointments.failed",
					"patient", tc.User().ID, "error", err.Error())
				return errorResult("Failed to look up appointments: %v", err), nil
			}

			now := time.Now()
			upcoming := make([]map[string]any, 0, len(recs))
			for _, rec := range recs {
				if rec.StartTime.Before(now) {
					continue
				}
				upcoming = append(upcoming, map[string]any{
					"appointment_id": rec.ID,
					"service_type":   rec.ServiceType,
					"doctor_name":    rec.DoctorName,
					"start_time":     rec.StartTime.In(ts.cfg.Location()).Format(time.RFC3339),
					"end_time":       rec.EndTime.In(ts.cfg.Location()).Format(time.RFC3339),
				})
			}
			return map[string]any{"status": "success", "appointments": upcoming}, nil
		},
	)
}

// CancelAppointment removes a booking: the calendar event first, then the
// stored record. Only the owning patient may cancel.
func (ts *Toolset) CancelAppointment() tool.Tool {
	return tool.NewFunctionTool(
		"cancel_appointment",
		"Permanently cancel one of the patient's appointments by its appointment_id.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"appointment_id": map[string]any{
					"type":        "string",
					"description": "ID returned by find_upcoming_appointments",
				},
			},
			"required": []string{"appointment_id"},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			id := args["appointment_id"].(string)
			rec, found, err := ts.appointments.GetByID(tc.Context(), id)
			if err != nil {
				return errorResult("Failed to look up appointment: %v", err), nil
			}
			if !found || rec.PatientSupabaseID != tc.User().ID {
				return errorResult("No appointment with id %s was found for this patient.", id), nil
			}

			doctor, ok := ts.cfg.FindDoctorByEmail(rec.DoctorEmail)
			if !ok {
				return errorResult("Appointment's doctor is no longer configured."), nil
			}
			if err := ts.calendar.DeleteEvent(tc.Context(), doctor.CalendarID, rec.GoogleCalendarEventID); err != nil {
				ts.logger.Error("clinic.cancel.calendar_failed",
					"appointment_id", id, "error", err.Error())
				return errorResult("Failed to cancel the calendar event: %v", err), nil
			}
			if _, err := ts.appointments.DeleteByID(tc.Context(), id); err != nil {
				// Calendar event is gone; report success to the patient but log
				// the stale record.
				ts.logger.Error("clinic.cancel.record_delete_failed",
					"appointment_id", id, "error", err.Error())
			}

			ts.logger.Info("clinic.appointment.canceled",
				"conversation_id", tc.ConversationID(), "appointment_id", id)

			return map[string]any{
				"status":  "success",
				"message": "Appointment canceled successfully.",
				"canceled_appointment": map[string]any{
					"service_type": rec.ServiceType,
					"doctor_name":  rec.DoctorName,
					"start_time":   rec.StartTime.In(ts.cfg.Location()).Format(time.RFC3339),
				},
			}, nil
		},
	)
}

// SendCancellationEmail confirms a cancellation to the patient by email.
func (ts *Toolset) SendCancellationEmail() tool.Tool {
	return tool.NewFunctionTool(
		"send_cancellation_email",
		"Send a cancellation confirmation email to the patient.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"patient_name":   map[string]any{"type": "string"},
				"patient_email":  map[string]any{"type": "string"},
				"service_type":   map[string]any{"type": "string"},
				"start_time_iso": map[string]any{"type": "string"},
			},
			"required": []string{"patient_name", "patient_email", "service_type", "start_time_iso"},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			start, err := time.Parse(time.RFC3339, args["start_time_iso"].(string))
			if err != nil {
				return errorResult("start_time_iso is not valid ISO 8601: %v", err), nil
			}
			if err := ts.notifier.SendCancellationConfirmation(tc.Context(),
				args["patient_name"].(string),
				args["patient_email"].(string),
				args["service_type"].(string),
				start.In(ts.cfg.Location()),
			); err != nil {
				return errorResult("Failed to send cancellation email: %v", err), nil
			}
			return map[string]any{"status": "success", "message": "Cancellation email sent successfully."}, nil
		},
	)
}
