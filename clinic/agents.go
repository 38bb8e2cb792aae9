package clinic

import (
	"fmt"

	"github.com/zentist/clinicdesk/agent"
	"github.com/zentist/clinicdesk/model"
	"github.com/zentist/clinicdesk/tool"
)

// BuildRegistry assembles the clinic's agent topology:
//
//	Receptionist -> Scheduler, Canceling
//	Canceling    -> Receptionist
//	Scheduler    (terminal)
//
// Unknown stored agent names fall back to the receptionist.
func BuildRegistry(cfg *Config, ts *Toolset, m model.Model) (*agent.Registry, error) {
	registry := agent.NewRegistry(ReceptionistAgentName)

	agents := []*agent.Agent{
		{
			Name:         ReceptionistAgentName,
			Description:  "Specializes in general question-answering about the clinic.",
			Instructions: cfg.ReceptionistInstructions(),
			Handoffs:     []string{SchedulerAgentName, CancelingAgentName},
			Model:        m,
		},
		{
			Name:         SchedulerAgentName,
			Description:  "Specializes in appointment booking related tasks.",
			Instructions: cfg.SchedulerInstructions(),
			Tools: []tool.Tool{
				ts.CreateAppointment(),
				ts.FindFreeSlots(),
				ts.SendBookingConfirmation(),
			},
			Model: m,
		},
		{
			Name:         CancelingAgentName,
			Description:  "Specializes in appointment cancellation tasks.",
			Instructions: cfg.CancelingInstructions(),
			Tools: []tool.Tool{
				ts.FindUpcomingAppointments(),
				ts.CancelAppointment(),
				ts.SendCancellationEmail(),
			},
			Handoffs: []string{ReceptionistAgentName},
			Model:    m,
		},
	}

	for _, a := range agents {
		if err := registry.Register(a); err != nil {
			return nil, fmt.Errorf("clinic: register %s: %w", a.Name, err)
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("clinic: invalid agent topology: %w", err)
	}
	return registry, nil
}
