// Package clinic holds the dental clinic's domain: its configuration, the
// Google Calendar and SendGrid clients, the agent tool set and the prompt
// builders that turn configuration into agent instructions.
package clinic

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Doctor describes one practitioner and the calendar bookings land on.
type Doctor struct {
	Name       string `mapstructure:"name"`
	Specialty  string `mapstructure:"specialty"`
	Email      string `mapstructure:"email"`
	CalendarID string `mapstructure:"calendar_id"`
}

// Config is the clinic's operational data, loaded from a YAML file at
// startup. Hours maps weekday names ("Monday") to display strings
// ("9:00 AM - 5:00 PM" or "Closed"); Services maps a service name to its
// duration in minutes.
type Config struct {
	Name     string            `mapstructure:"name"`
	Address  string            `mapstructure:"address"`
	Phone    string            `mapstructure:"phone"`
	Timezone string            `mapstructure:"timezone"`
	Hours    map[string]string `mapstructure:"hours"`
	Doctors  []Doctor          `mapstructure:"doctors"`
	Services map[string]int    `mapstructure:"services"`

	location *time.Location
}

// LoadConfig reads and validates the clinic configuration file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("clinic: read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("clinic: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and resolves the timezone.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("clinic: name is required")
	}
	if c.Timezone == "" {
		return fmt.Errorf("clinic: timezone is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("clinic: invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if len(c.Doctors) == 0 {
		return fmt.Errorf("clinic: at least one doctor is required")
	}
	for _, d := range c.Doctors {
		if d.Name == "" || d.Email == "" || d.CalendarID == "" {
			return fmt.Errorf("clinic: doctor %q needs name, email and calendar_id", d.Name)
		}
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("clinic: at least one service is required")
	}
	for name, minutes := range c.Services {
		if minutes <= 0 {
			return fmt.Errorf("clinic: service %q needs a positive duration", name)
		}
	}
	return nil
}

// Location returns the clinic's timezone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// FindDoctorByEmail returns the doctor with the given email.
func (c *Config) FindDoctorByEmail(email string) (Doctor, bool) {
	for _, d := range c.Doctors {
		if d.Email == email {
			return d, true
		}
	}
	return Doctor{}, false
}

// ServiceDuration returns a service's duration, when the service exists.
func (c *Config) ServiceDuration(service string) (time.Duration, bool) {
	minutes, ok := c.Services[service]
	if !ok {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}
