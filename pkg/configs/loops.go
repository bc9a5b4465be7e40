package configs

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/confixenvios/confixenvios-sub003/pkg/buildtime"
)

// Loops is the configuration of loops.
type Loops struct {
	Database Database `yaml:"database"`

	// Hooks are URLs which receive every event, besides endpoints registered via API.
	Hooks Hooks `yaml:"hooks"`

	// HookSecret signs deliveries to Hooks.
	HookSecret string `yaml:"hook_secret" env:"CONFIX_HOOK_SECRET"`

	Dispatch     Dispatch     `yaml:"dispatch"`
	Reconcile    Reconcile    `yaml:"reconcile"`
	Housekeeping Housekeeping `yaml:"housekeeping"`

	Asaas Asaas `yaml:"asaas"`
}

// Hooks are statically configured webhook URLs.
type Hooks []string

func (h *Hooks) UnmarshalYAML(node *yaml.Node) error {
	raw := []string{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for _, u := range raw {
		if err := absoluteURL("hooks", u, false); err != nil {
			return err
		}
	}
	*h = raw
	return nil
}

type Dispatch struct {
	// MaxAttempts is how many times a delivery is tried before it fails.
	MaxAttempts int `yaml:"max_attempts" env:"CONFIX_DISPATCH_MAX_ATTEMPTS"`

	// Timeout of each request.
	Timeout time.Duration `yaml:"timeout" env:"CONFIX_DISPATCH_TIMEOUT"`

	UserAgent string `yaml:"user_agent" env:"CONFIX_DISPATCH_USER_AGENT"`
}

type Reconcile struct {
	// RecheckInterval is how long a pending payment rests between polls.
	RecheckInterval time.Duration `yaml:"recheck_interval" env:"CONFIX_RECONCILE_RECHECK_INTERVAL"`
}

type Housekeeping struct {
	// PaymentDeadline is how long a shipment waits for payment before cancelled.
	PaymentDeadline time.Duration `yaml:"payment_deadline" env:"CONFIX_HOUSEKEEPING_PAYMENT_DEADLINE"`
}

func defaultLoops() Loops {
	return Loops{
		Dispatch:     Dispatch{MaxAttempts: 8, Timeout: 15 * time.Second, UserAgent: buildtime.UserAgent("confix-webhooks")},
		Reconcile:    Reconcile{RecheckInterval: 10 * time.Minute},
		Housekeeping: Housekeeping{PaymentDeadline: 72 * time.Hour},
		Asaas:        Asaas{DueDays: 3, Timeout: 30 * time.Second},
	}
}

// LoadLoops reads loops configuration. filename can be empty to configure with environment variables only.
//
// Error: wraps ErrInvalidConfig when a value is missing or malformed.
func LoadLoops(filename string) (Loops, error) {
	cfg := defaultLoops()
	if err := load(filename, &cfg); err != nil {
		return Loops{}, err
	}
	if err := cfg.validate(); err != nil {
		return Loops{}, err
	}
	return cfg, nil
}

func (l Loops) validate() error {
	if err := l.Database.validate(); err != nil {
		return err
	}
	if len(l.Hooks) != 0 && l.HookSecret == "" {
		return fmt.Errorf("%w: hook_secret is required with hooks", ErrInvalidConfig)
	}
	if l.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("%w: dispatch.max_attempts should be 1 or more", ErrInvalidConfig)
	}
	if err := positive("dispatch.timeout", l.Dispatch.Timeout); err != nil {
		return err
	}
	if err := positive("reconcile.recheck_interval", l.Reconcile.RecheckInterval); err != nil {
		return err
	}
	if err := positive("housekeeping.payment_deadline", l.Housekeeping.PaymentDeadline); err != nil {
		return err
	}
	return l.Asaas.validate()
}
