// Package configs loads configuration files of confixd and loops.
//
// Files are YAML. Every value can be overridden by an environment variable
// (CONFIX_DB_URI, CONFIX_ASAAS_API_KEY, ...), which is handy for secrets.
package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// load fills target from a YAML file (when filename is not empty), then from environment variables.
func load(filename string, target any) error {
	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(content, target); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// absoluteURL checks that s is an absolute URL with a host. Empty s passes when optional.
func absoluteURL(name string, s string, optional bool) error {
	if s == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("%w: %s: not absolute: %s", ErrInvalidConfig, name, s)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: %s: no hostname: %s", ErrInvalidConfig, name, s)
	}
	return nil
}

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s should be positive: %s", ErrInvalidConfig, name, d)
	}
	return nil
}

// Database is where confixd and loops keep their state.
type Database struct {
	URI string `yaml:"uri" env:"CONFIX_DB_URI"`

	// SchemaRepository is the directory holding schema/postgres/<version>/*.sql.
	SchemaRepository string `yaml:"schema_repository" env:"CONFIX_SCHEMA_REPOSITORY"`
}

func (d Database) validate() error {
	if d.URI == "" {
		return fmt.Errorf("%w: database.uri is required", ErrInvalidConfig)
	}
	if d.SchemaRepository == "" {
		return fmt.Errorf("%w: database.schema_repository is required", ErrInvalidConfig)
	}
	return nil
}

// Asaas is the payment gateway.
type Asaas struct {
	// URL of Asaas API. Empty means the sandbox.
	URL    string `yaml:"url" env:"CONFIX_ASAAS_URL"`
	APIKey string `yaml:"api_key" env:"CONFIX_ASAAS_API_KEY"`

	// WebhookToken is what Asaas sends as "asaas-access-token".
	WebhookToken string `yaml:"webhook_token" env:"CONFIX_ASAAS_WEBHOOK_TOKEN"`

	// DueDays is how many days boleto and PIX charges are payable.
	DueDays int `yaml:"due_days" env:"CONFIX_ASAAS_DUE_DAYS"`

	Timeout time.Duration `yaml:"timeout" env:"CONFIX_ASAAS_TIMEOUT"`
}

func (a Asaas) validate() error {
	if err := absoluteURL("asaas.url", a.URL, true); err != nil {
		return err
	}
	if a.APIKey == "" {
		return fmt.Errorf("%w: asaas.api_key is required", ErrInvalidConfig)
	}
	if a.DueDays < 0 {
		return fmt.Errorf("%w: asaas.due_days should not be negative", ErrInvalidConfig)
	}
	return positive("asaas.timeout", a.Timeout)
}
