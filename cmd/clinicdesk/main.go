// Command clinicdesk runs the dental clinic scheduling assistant: an SSE chat
// API backed by a multi-agent conversation engine, Google Calendar and
// SendGrid integrations, and SQLite persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/clinic"
	"github.com/zentist/clinicdesk/config"
	"github.com/zentist/clinicdesk/engine"
	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/metrics"
	"github.com/zentist/clinicdesk/model"
	anthropicmodel "github.com/zentist/clinicdesk/model/anthropic"
	openaimodel "github.com/zentist/clinicdesk/model/openai"
	"github.com/zentist/clinicdesk/server"
	"github.com/zentist/clinicdesk/session"
	"github.com/zentist/clinicdesk/store"
)

func main() {
	configPath := flag.String("config", "", "path to the service configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "clinicdesk:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel), "clinicdesk")

	clinicCfg, err := clinic.LoadConfig(cfg.ClinicConfigPath)
	if err != nil {
		return err
	}

	appointments, err := store.Open(cfg.AppointmentsDBPath)
	if err != nil {
		return err
	}
	defer appointments.Close()

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	calendar := clinic.NewGoogleCalendar(cfg.Calendar.BaseURL, cfg.Calendar.APIToken,
		time.Duration(cfg.Calendar.TimeoutSeconds)*time.Second)

	var mailer clinic.Mailer = clinic.NopMailer{}
	if cfg.Email.Enabled {
		mailer = clinic.NewSendGridMailer(cfg.Email.BaseURL, cfg.Email.APIKey,
			cfg.Email.FromName, cfg.Email.FromAddress)
	} else {
		logger.Warn("email disabled, confirmation emails will be skipped")
	}
	notifier := clinic.NewNotifier(mailer, logger)

	toolset := clinic.NewToolset(clinicCfg, calendar, appointments, notifier, logger)
	registry, err := clinic.BuildRegistry(clinicCfg, toolset, newModel(cfg))
	if err != nil {
		return err
	}

	eng := engine.New(registry, logger, func(o *engine.Options) {
		o.MaxModelCalls = cfg.MaxModelCalls
	})

	srv := server.New(cfg, eng, sessions, appointments,
		auth.NewVerifier(cfg.SupabaseJWTSecret), metrics.New(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"clinic", clinicCfg.Name, "provider", cfg.Provider, "model", cfg.ModelName,
		"agents", registry.Names())
	return srv.Run(ctx)
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.SessionDBPath == "" {
		return session.NewMemoryStore(cfg.SessionTTL()), nil
	}
	return session.NewSQLiteStore(cfg.SessionDBPath, cfg.SessionTTL())
}

func newModel(cfg *config.Config) model.Model {
	if cfg.Provider == "anthropic" {
		return anthropicmodel.New(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.ModelName)
			o.Temperature = cfg.Temperature
		})
	}
	return openaimodel.New(func(o *openaimodel.Options) {
		o.Model = cfg.ModelName
		o.Temperature = cfg.Temperature
	})
}
