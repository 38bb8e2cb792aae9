package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/core"
	"github.com/zentist/clinicdesk/engine"
	"github.com/zentist/clinicdesk/store"
)

const createAppointmentTool = "create_appointment"

type chatRequest struct {
	UserMessage    string `json:"user_message"`
	ConversationID string `json:"conversation_id"`
}

// newConversationID mints an opaque id handed back to the client on the first
// turn of a conversation.
func newConversationID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// handleChatStream runs one conversational turn and streams it as SSE frames.
//
// Frame order: conversation_id (only when the request omitted one), then the
// turn's text / tool_start / tool_end / handoff events as they happen, then
// end after the session state is persisted. Successful create_appointment
// results are reconciled into the appointment store mid-stream.
func (s *Server) handleChatStream(c *gin.Context) {
	user := currentUser(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_message is required"})
		return
	}

	ctx := c.Request.Context()
	conversationID := req.ConversationID
	isNew := conversationID == ""
	if isNew {
		conversationID = newConversationID()
	}

	state, _, err := s.sessions.Load(ctx, user.ID, conversationID)
	if err != nil {
		// Start the turn from a blank transcript rather than failing it.
		s.logger.Error("server.session.load_failed",
			"conversation_id", conversationID, "error", err.Error())
		state = core.ConversationState{}
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	w := newSSEWriter(c.Writer)
	if isNew {
		if err := w.send("conversation_id", map[string]any{"id": conversationID}); err != nil {
			return
		}
	}

	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()
	started := time.Now()

	events, results := s.engine.Run(ctx, engine.TurnRequest{
		ConversationID: conversationID,
		User:           user,
		Message:        req.UserMessage,
		State:          state,
	})

	for ev := range events {
		s.observeEvent(ctx, user, ev)
		for _, frame := range translate(ev) {
			if err := w.send(frame.Event, frame.Data); err != nil {
				s.logger.Warn("server.stream.write_failed",
					"conversation_id", conversationID, "error", err.Error())
				break
			}
		}
	}

	res := <-results
	status := "ok"
	switch {
	case errors.Is(res.Err, context.Canceled):
		status = "canceled"
	case res.Err != nil:
		status = "error"
		s.logger.Error("server.turn.failed",
			"conversation_id", conversationID, "agent", res.FinalAgent, "error", res.Err.Error())
	}
	s.metrics.TurnsTotal.WithLabelValues(res.FinalAgent, status).Inc()
	s.metrics.TurnDuration.WithLabelValues(res.FinalAgent).Observe(time.Since(started).Seconds())

	// A failed turn closes the stream without an end frame: nothing was
	// persisted, and the missing end tells the client to treat the turn as
	// failed rather than recorded.
	if res.Err != nil {
		return
	}

	next := core.ConversationState{History: res.History, ActiveAgent: res.FinalAgent}
	if err := s.sessions.Save(ctx, user.ID, conversationID, next); err != nil {
		// The turn already streamed; the conversation just won't resume.
		s.metrics.SessionSaveFails.Inc()
		s.logger.Error("server.session.save_failed",
			"conversation_id", conversationID, "error", err.Error())
	}

	_ = w.send("end", map[string]any{})
}

// observeEvent records per-event metrics and triggers booking reconciliation.
func (s *Server) observeEvent(ctx context.Context, user auth.User, ev core.Event) {
	if ev.Handoff != "" {
		s.metrics.HandoffsTotal.WithLabelValues(ev.Author, ev.Handoff).Inc()
		return
	}
	for _, fr := range ev.FunctionResponses() {
		s.metrics.ToolCallsTotal.WithLabelValues(fr.Name, toolStatus(fr)).Inc()
		if fr.Name == createAppointmentTool && fr.Error == "" {
			s.reconcileBooking(ctx, user, fr)
		}
	}
}

func toolStatus(fr core.FunctionResponse) string {
	if fr.Error != "" {
		return "error"
	}
	if m, ok := fr.Response.(map[string]any); ok {
		if st, _ := m["status"].(string); st == "error" {
			return "error"
		}
	}
	return "ok"
}

// reconcileBooking mirrors one successful calendar booking into the
// appointment store. The patient identity always comes from the verified
// token. Failures are logged and swallowed so the stream keeps flowing.
func (s *Server) reconcileBooking(ctx context.Context, user auth.User, fr core.FunctionResponse) {
	payload, ok := fr.Response.(map[string]any)
	if !ok {
		return
	}
	if st, _ := payload["status"].(string); st != "success" {
		return
	}
	details, ok := payload["appointment_details"].(map[string]any)
	if !ok {
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		s.logger.Error("server.booking.malformed_payload", "call_id", fr.ID)
		return
	}

	field := func(key string) string {
		v, _ := details[key].(string)
		return v
	}
	start, err := time.Parse(time.RFC3339, field("start_time"))
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		s.logger.Error("server.booking.bad_start_time", "value", field("start_time"))
		return
	}
	end, err := time.Parse(time.RFC3339, field("end_time"))
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		s.logger.Error("server.booking.bad_end_time", "value", field("end_time"))
		return
	}

	rec, err := s.appointments.Insert(ctx, store.AppointmentRecord{
		PatientSupabaseID:       user.ID,
		PatientName:             field("patient_name"),
		PatientEmail:            field("patient_email"),
		DoctorName:              field("doctor_name"),
		DoctorEmail:             field("doctor_email"),
		ClinicAddress:           field("clinic_address"),
		ServiceType:             field("service_type"),
		StartTime:               start,
		EndTime:                 end,
		GoogleCalendarEventID:   field("google_calendar_event_id"),
		GoogleCalendarEventLink: field("google_calendar_event_link"),
	})
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		s.logger.Error("server.booking.insert_failed",
			"event_id", field("google_calendar_event_id"), "error", err.Error())
		return
	}

	s.metrics.BookingsTotal.WithLabelValues("success").Inc()
	s.logger.Info("server.booking.recorded",
		"appointment_id", rec.ID, "event_id", rec.GoogleCalendarEventID)
}
