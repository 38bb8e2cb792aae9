package clinic

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zentist/clinicdesk/logging"
)

var patientConfirmationTmpl = template.Must(template.New("patient_confirmation").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Appointment Confirmation</title></head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; margin: 20px auto; border: 1px solid #dddddd; background-color: #ffffff;">
    <tr>
      <td align="center" style="padding: 40px 0 30px 0;">
        <h1 style="color: #333333; margin-top: 20px;">Your Appointment is Confirmed!</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 40px 30px;">
        <p style="font-size: 16px;">Dear {{.PatientName}},</p>
        <p style="font-size: 16px;">This email confirms your upcoming appointment with us. Please find the details below:</p>
        <table border="0" cellpadding="10" cellspacing="0" width="100%" style="border: 1px solid #dddddd;">
          <tr style="background-color: #f9f9f9;"><td width="150" style="font-weight: bold;">Service:</td><td>{{.ServiceType}}</td></tr>
          <tr><td style="font-weight: bold;">Date:</td><td>{{.FormattedDate}}</td></tr>
          <tr style="background-color: #f9f9f9;"><td style="font-weight: bold;">Time:</td><td>{{.FormattedTime}} (Duration: {{.DurationMinutes}} mins)</td></tr>
          <tr><td style="font-weight: bold;">With:</td><td>{{.DoctorName}}</td></tr>
          <tr style="background-color: #f9f9f9;"><td style="font-weight: bold;">Location:</td><td>{{.ClinicAddress}}</td></tr>
        </table>
        <p align="center" style="padding: 20px 0;">
          <a href="{{.AddToCalendarLink}}" style="background-color: #4CAF50; color: white; padding: 12px 25px; text-decoration: none; display: inline-block; border-radius: 5px; font-size: 16px;">Add to Your Calendar</a>
        </p>
        <p>If you need to cancel, please contact us at least 24 hours in advance.</p>
        <p>We look forward to seeing you!</p>
      </td>
    </tr>
  </table>
</body>
</html>`))

var doctorNotificationTmpl = template.Must(template.New("doctor_notification").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>New Appointment Notification</title></head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; margin: 20px auto; border: 1px solid #dddddd; background-color: #ffffff;">
    <tr>
      <td align="center" bgcolor="#4C78AF" style="padding: 30px 0; color: #ffffff;">
        <h1 style="margin: 0;">New Appointment Booked</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 40px 30px;">
        <p style="font-size: 16px;">Hello {{.DoctorName}},</p>
        <p style="font-size: 16px;">A new appointment has been booked on your calendar via the AI assistant:</p>
        <table border="0" cellpadding="10" cellspacing="0" width="100%" style="border: 1px solid #dddddd;">
          <tr style="background-color: #f9f9f9;"><td width="150" style="font-weight: bold;">Patient:</td><td>{{.PatientName}} (<a href="mailto:{{.PatientEmail}}">{{.PatientEmail}}</a>)</td></tr>
          <tr><td style="font-weight: bold;">Service:</td><td>{{.ServiceType}}</td></tr>
          <tr style="background-color: #f9f9f9;"><td style="font-weight: bold;">When:</td><td>{{.FormattedDate}} at {{.FormattedTime}}</td></tr>
        </table>
        <p align="center" style="padding: 20px 0;">
          <a href="{{.EventLink}}" style="background-color: #007bff; color: white; padding: 12px 25px; text-decoration: none; display: inline-block; border-radius: 5px; font-size: 16px;">View Event in Google Calendar</a>
        </p>
      </td>
    </tr>
  </table>
</body>
</html>`))

var cancellationTmpl = template.Must(template.New("cancellation_confirmation").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Appointment Cancellation</title></head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; margin: 20px auto; border: 1px solid #dddddd; background-color: #ffffff;">
    <tr>
      <td align="center" bgcolor="#dc3545" style="padding: 30px 0; color: #ffffff;">
        <h1 style="margin: 0;">Appointment Canceled</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 40px 30px;">
        <p style="font-size: 16px;">Dear {{.PatientName}},</p>
        <p style="font-size: 16px;">This email confirms that your appointment has been successfully canceled as requested. The details are below:</p>
        <table border="0" cellpadding="10" cellspacing="0" width="100%" style="border: 1px solid #dddddd; margin-top: 20px;">
          <tr style="background-color: #f9f9f9;"><td width="150" style="font-weight: bold;">Service:</td><td>{{.ServiceType}}</td></tr>
          <tr><td style="font-weight: bold;">Date:</td><td>{{.FormattedDate}}</td></tr>
          <tr style="background-color: #f9f9f9;"><td style="font-weight: bold;">Time:</td><td>{{.FormattedTime}}</td></tr>
        </table>
        <p style="font-size: 16px; margin-top: 30px;">If you wish to book a new appointment in the future, please don't hesitate to use our AI assistant or contact us directly.</p>
        <p style="font-size: 16px;">Best regards</p>
      </td>
    </tr>
  </table>
</body>
</html>`))

// BookingDetails carries everything the confirmation emails mention.
type BookingDetails struct {
	PatientName       string
	PatientEmail      string
	DoctorName        string
	DoctorEmail       string
	ClinicAddress     string
	ServiceType       string
	Start             time.Time
	End               time.Time
	EventLink         string
	AddToCalendarLink string
}

// EmailStatus reports one recipient's outcome.
type EmailStatus struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Notifier renders and sends the clinic's transactional emails.
type Notifier struct {
	mailer Mailer
	logger logging.Logger
}

// NewNotifier builds a Notifier on top of a Mailer.
func NewNotifier(mailer Mailer, logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Notifier{mailer: mailer, logger: logger}
}

const (
	dateFormat = "Monday, January 2, 2006"
	timeFormat = "3:04 PM MST"
)

// SendBookingConfirmation emails patient and doctor concurrently. One
// recipient failing does not stop the other; the per-recipient outcomes are
// returned alongside an overall status of "success" or "partial_failure".
func (n *Notifier) SendBookingConfirmation(ctx context.Context, d BookingDetails) (string, []EmailStatus, error) {
	patientHTML, err := render(patientConfirmationTmpl, map[string]any{
		"PatientName":       d.PatientName,
		"ServiceType":       d.ServiceType,
		"FormattedDate":     d.Start.Format(dateFormat),
		"FormattedTime":     d.Start.Format(timeFormat),
		"DurationMinutes":   int(d.End.Sub(d.Start).Minutes()),
		"DoctorName":        d.DoctorName,
		"ClinicAddress":     d.ClinicAddress,
		"AddToCalendarLink": template.URL(d.AddToCalendarLink),
	})
	if err != nil {
		return "", nil, err
	}
	doctorHTML, err := render(doctorNotificationTmpl, map[string]any{
		"DoctorName":    d.DoctorName,
		"PatientName":   d.PatientName,
		"PatientEmail":  d.PatientEmail,
		"ServiceType":   d.ServiceType,
		"FormattedDate": d.Start.Format(dateFormat),
		"FormattedTime": d.Start.Format(timeFormat),
		"EventLink":     template.URL(d.EventLink),
	})
	if err != nil {
		return "", nil, err
	}

	emails := []Email{
		{To: d.PatientEmail, ToName: d.PatientName, Subject: "Appointment Confirmation", HTML: patientHTML},
		{To: d.DoctorEmail, ToName: d.DoctorName, Subject: fmt.Sprintf("[New Booking] %s - %s", d.PatientName, d.Start.Format(dateFormat)), HTML: doctorHTML},
	}

	statuses := make([]EmailStatus, len(emails))
	var g errgroup.Group
	for i, email := range emails {
		g.Go(func() error {
			statuses[i] = n.send(ctx, email)
			return nil
		})
	}
	_ = g.Wait()

	overall := "success"
	for _, st := range statuses {
		if st.Status != "success" {
			overall = "partial_failure"
		}
	}
	return overall, statuses, nil
}

// SendCancellationConfirmation emails the patient that their appointment was
// canceled.
func (n *Notifier) SendCancellationConfirmation(
	ctx context.Context,
	patientName, patientEmail, serviceType string,
	start time.Time,
) error {
	html, err := render(cancellationTmpl, map[string]any{
		"PatientName":   patientName,
		"ServiceType":   serviceType,
		"FormattedDate": start.Format(dateFormat),
		"FormattedTime": start.Format(timeFormat),
	})
	if err != nil {
		return err
	}
	st := n.send(ctx, Email{
		To: patientEmail, ToName: patientName,
		Subject: "Cancellation Confirmation", HTML: html,
	})
	if st.Status != "success" {
		return fmt.Errorf("clinic: cancellation email to %s: %s", patientEmail, st.Message)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, email Email) EmailStatus {
	if err := n.mailer.Send(ctx, email); err != nil {
		n.logger.Error("clinic.email.failed", "recipient", email.To, "error", err.Error())
		return EmailStatus{Recipient: email.To, Status: "error", Message: err.Error()}
	}
	return EmailStatus{Recipient: email.To, Status: "success"}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("clinic: render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
