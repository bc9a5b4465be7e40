package configs

import (
	"fmt"
	"time"
)

// Server is the configuration of confixd.
type Server struct {
	Port     int      `yaml:"port" env:"CONFIX_PORT"`
	Database Database `yaml:"database"`

	// CORSOrigins are origins of the web UI.
	CORSOrigins []string `yaml:"cors_origins" env:"CONFIX_CORS_ORIGINS" envSeparator:","`

	// BodyLimit caps request bodies, like "10M".
	BodyLimit string `yaml:"body_limit" env:"CONFIX_BODY_LIMIT"`

	// QuoteTTL is how long a quote can be used to create a shipment.
	QuoteTTL time.Duration `yaml:"quote_ttl" env:"CONFIX_QUOTE_TTL"`

	Auth    Auth    `yaml:"auth"`
	Asaas   Asaas   `yaml:"asaas"`
	Inbound Inbound `yaml:"inbound"`
	AI      AI      `yaml:"ai"`
	CEP     CEP     `yaml:"cep"`
}

type Auth struct {
	// JWTSecret verifies HS256 tokens of the hosted auth service.
	JWTSecret string `yaml:"jwt_secret" env:"CONFIX_JWT_SECRET"`

	// Audience, when set, is required in tokens.
	Audience string `yaml:"audience" env:"CONFIX_JWT_AUDIENCE"`
}

// Inbound is for webhooks from TMS (CT-e and tracking).
type Inbound struct {
	// Token is what callers send as "X-Webhook-Token".
	Token string `yaml:"token" env:"CONFIX_INBOUND_TOKEN"`
}

// AI is the chat completion model used when no pricing table covers a route.
//
// Without APIKey, AI quotes are disabled.
type AI struct {
	URL     string        `yaml:"url" env:"CONFIX_AI_URL"`
	APIKey  string        `yaml:"api_key" env:"CONFIX_AI_API_KEY"`
	Model   string        `yaml:"model" env:"CONFIX_AI_MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"CONFIX_AI_TIMEOUT"`

	// CubicFactor (kg/m3) for chargeable weights of estimated quotes.
	CubicFactor float64 `yaml:"cubic_factor" env:"CONFIX_AI_CUBIC_FACTOR"`
}

func (a AI) Enabled() bool {
	return a.APIKey != ""
}

type CEP struct {
	// URL of BrasilAPI.
	URL     string        `yaml:"url" env:"CONFIX_CEP_URL"`
	Timeout time.Duration `yaml:"timeout" env:"CONFIX_CEP_TIMEOUT"`
}

func defaultServer() Server {
	return Server{
		Port:      8080,
		BodyLimit: "10M",
		QuoteTTL:  24 * time.Hour,
		Auth:      Auth{Audience: "authenticated"},
		Asaas:     Asaas{DueDays: 3, Timeout: 30 * time.Second},
		AI:        AI{Model: "gpt-4o-mini", Timeout: 30 * time.Second, CubicFactor: 300},
		CEP:       CEP{URL: "https://brasilapi.com.br", Timeout: 10 * time.Second},
	}
}

// LoadServer reads confixd configuration. filename can be empty to configure with environment variables only.
//
// Error: wraps ErrInvalidConfig when a value is missing or malformed.
func LoadServer(filename string) (Server, error) {
	cfg := defaultServer()
	if err := load(filename, &cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	if s.Port <= 0 || 65535 < s.Port {
		return fmt.Errorf("%w: port is out of range: %d", ErrInvalidConfig, s.Port)
	}
	if err := s.Database.validate(); err != nil {
		return err
	}
	if err := positive("quote_ttl", s.QuoteTTL); err != nil {
		return err
	}
	if s.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret is required", ErrInvalidConfig)
	}
	if err := s.Asaas.validate(); err != nil {
		return err
	}
	if s.Asaas.WebhookToken == "" {
		return fmt.Errorf("%w: asaas.webhook_token is required", ErrInvalidConfig)
	}
	if s.Inbound.Token == "" {
		return fmt.Errorf("%w: inbound.token is required", ErrInvalidConfig)
	}
	for _, o := range s.CORSOrigins {
		if o == "*" {
			continue
		}
		if err := absoluteURL("cors_origins", o, false); err != nil {
			return err
		}
	}
	if s.AI.Enabled() {
		if err := absoluteURL("ai.url", s.AI.URL, true); err != nil {
			return err
		}
		if err := positive("ai.timeout", s.AI.Timeout); err != nil {
			return err
		}
		if s.AI.CubicFactor <= 0 {
			return fmt.Errorf("%w: ai.cubic_factor should be positive: %g", ErrInvalidConfig, s.AI.CubicFactor)
		}
	}
	if err := absoluteURL("cep.url", s.CEP.URL, false); err != nil {
		return err
	}
	return positive("cep.timeout", s.CEP.Timeout)
}
