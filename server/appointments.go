package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zentist/clinicdesk/store"
)

const dateLayout = "2006-01-02"

// handleListAppointments returns the appointments booked with the doctor
// identified by the token's email, optionally bounded by start_date and
// end_date (inclusive calendar days), ordered by start time.
func (s *Server) handleListAppointments(c *gin.Context) {
	user := currentUser(c)
	if user.Email == "" {
		c.JSON(http.StatusForbidden, gin.H{"detail": "token carries no email claim"})
		return
	}

	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "start_date must be YYYY-MM-DD"})
			return
		}
		from = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "end_date must be YYYY-MM-DD"})
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}

	recs, err := s.appointments.ListByDoctor(c.Request.Context(), user.Email, from, to)
	if err != nil {
		s.logger.Error("server.appointments.list_failed",
			"doctor", user.Email, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load appointments"})
		return
	}
	if recs == nil {
		recs = []store.AppointmentRecord{}
	}
	c.JSON(http.StatusOK, recs)
}
