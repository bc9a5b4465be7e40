package configs_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/buildtime"
	"github.com/confixenvios/confixenvios-sub003/pkg/configs"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

func write(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

const serverYAML = `
port: 9090
database:
  uri: postgres://confix@db:5432/confix
  schema_repository: /schema
cors_origins:
  - https://app.confixenvios.com.br
quote_ttl: 2h
auth:
  jwt_secret: jwt-secret
asaas:
  api_key: $aact_test
  webhook_token: asaas-token
  due_days: 5
inbound:
  token: tms-token
ai:
  url: https://llm.example.com/v1/chat/completions
  api_key: sk-test
  model: small
`

func TestLoadServer(t *testing.T) {
	t.Run("it reads yaml and fills defaults", func(t *testing.T) {
		got := try.To(configs.LoadServer(write(t, serverYAML))).OrFatal(t)

		if got.Port != 9090 {
			t.Errorf("port = %d", got.Port)
		}
		if got.Database.URI != "postgres://confix@db:5432/confix" || got.Database.SchemaRepository != "/schema" {
			t.Errorf("database = %+v", got.Database)
		}
		if !slices.Equal(got.CORSOrigins, []string{"https://app.confixenvios.com.br"}) {
			t.Errorf("cors origins = %v", got.CORSOrigins)
		}
		if got.QuoteTTL != 2*time.Hour {
			t.Errorf("quote ttl = %s", got.QuoteTTL)
		}
		if got.Asaas.DueDays != 5 || got.Asaas.Timeout != 30*time.Second || got.Asaas.URL != "" {
			t.Errorf("asaas = %+v", got.Asaas)
		}
		if got.Auth.Audience != "authenticated" {
			t.Errorf("audience = %q", got.Auth.Audience)
		}
		if !got.AI.Enabled() || got.AI.Model != "small" || got.AI.Timeout != 30*time.Second || got.AI.CubicFactor != 300 {
			t.Errorf("ai = %+v", got.AI)
		}
		if got.CEP.URL != "https://brasilapi.com.br" || got.BodyLimit != "10M" {
			t.Errorf("cep = %+v, body limit = %s", got.CEP, got.BodyLimit)
		}
	})

	t.Run("environment variables override yaml", func(t *testing.T) {
		t.Setenv("CONFIX_DB_URI", "postgres://other@db2:5432/confix")
		t.Setenv("CONFIX_ASAAS_API_KEY", "$aact_prod")
		t.Setenv("CONFIX_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
		t.Setenv("CONFIX_QUOTE_TTL", "30m")

		got := try.To(configs.LoadServer(write(t, serverYAML))).OrFatal(t)
		if got.Database.URI != "postgres://other@db2:5432/confix" {
			t.Errorf("db uri = %s", got.Database.URI)
		}
		if got.Asaas.APIKey != "$aact_prod" {
			t.Errorf("api key = %s", got.Asaas.APIKey)
		}
		if !slices.Equal(got.CORSOrigins, []string{"https://a.example.com", "https://b.example.com"}) {
			t.Errorf("cors origins = %v", got.CORSOrigins)
		}
		if got.QuoteTTL != 30*time.Minute {
			t.Errorf("quote ttl = %s", got.QuoteTTL)
		}
		if got.Database.SchemaRepository != "/schema" {
			t.Errorf("schema repository is lost: %q", got.Database.SchemaRepository)
		}
	})

	t.Run("without file, environment variables are enough", func(t *testing.T) {
		for k, v := range map[string]string{
			"CONFIX_DB_URI":              "postgres://confix@db:5432/confix",
			"CONFIX_SCHEMA_REPOSITORY":   "/schema",
			"CONFIX_JWT_SECRET":          "jwt-secret",
			"CONFIX_ASAAS_API_KEY":       "$aact_test",
			"CONFIX_ASAAS_WEBHOOK_TOKEN": "asaas-token",
			"CONFIX_INBOUND_TOKEN":       "tms-token",
		} {
			t.Setenv(k, v)
		}
		got := try.To(configs.LoadServer("")).OrFatal(t)
		if got.Port != 8080 || got.AI.Enabled() {
			t.Errorf("config = %+v", got)
		}
	})

	for name, broken := range map[string]string{
		"no jwt secret": `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k, webhook_token: t}
inbound: {token: t}
`,
		"relative asaas url": `
database: {uri: "postgres://db/confix", schema_repository: /schema}
auth: {jwt_secret: s}
asaas: {url: "sandbox.asaas.com/api/v3", api_key: k, webhook_token: t}
inbound: {token: t}
`,
		"port out of range": `
port: 70000
database: {uri: "postgres://db/confix", schema_repository: /schema}
auth: {jwt_secret: s}
asaas: {api_key: k, webhook_token: t}
inbound: {token: t}
`,
		"negative quote ttl": `
quote_ttl: -1h
database: {uri: "postgres://db/confix", schema_repository: /schema}
auth: {jwt_secret: s}
asaas: {api_key: k, webhook_token: t}
inbound: {token: t}
`,
		"no inbound token": `
database: {uri: "postgres://db/confix", schema_repository: /schema}
auth: {jwt_secret: s}
asaas: {api_key: k, webhook_token: t}
`,
	} {
		t.Run("it rejects: "+name, func(t *testing.T) {
			_, err := configs.LoadServer(write(t, broken))
			if !errors.Is(err, configs.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}

	t.Run("it reports missing file", func(t *testing.T) {
		_, err := configs.LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestLoadLoops(t *testing.T) {
	type When struct {
		content string
	}
	type Then struct {
		err  error
		want configs.Loops
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			got, err := configs.LoadLoops(write(t, when.content))
			if !errors.Is(err, then.err) {
				t.Fatalf("err = %v, want %v", err, then.err)
			}
			if then.err != nil {
				return
			}
			if !slices.Equal(got.Hooks, then.want.Hooks) {
				t.Errorf("hooks = %v, want %v", got.Hooks, then.want.Hooks)
			}
			if got.Dispatch != then.want.Dispatch {
				t.Errorf("dispatch = %+v, want %+v", got.Dispatch, then.want.Dispatch)
			}
			if got.Reconcile != then.want.Reconcile || got.Housekeeping != then.want.Housekeeping {
				t.Errorf("reconcile = %+v, housekeeping = %+v", got.Reconcile, got.Housekeeping)
			}
		}
	}

	t.Run("defaults", theory(
		When{content: `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k}
`},
		Then{want: configs.Loops{
			Dispatch:     configs.Dispatch{MaxAttempts: 8, Timeout: 15 * time.Second, UserAgent: buildtime.UserAgent("confix-webhooks")},
			Reconcile:    configs.Reconcile{RecheckInterval: 10 * time.Minute},
			Housekeeping: configs.Housekeeping{PaymentDeadline: 72 * time.Hour},
		}},
	))

	t.Run("hooks and tuning", theory(
		When{content: `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k}
hooks:
  - https://n8n.example.com/webhook/confix
  - http://tms.internal:8080/events
hook_secret: s3cret
dispatch:
  max_attempts: 3
  timeout: 5s
  user_agent: test
reconcile:
  recheck_interval: 1m
housekeeping:
  payment_deadline: 48h
`},
		Then{want: configs.Loops{
			Hooks:        configs.Hooks{"https://n8n.example.com/webhook/confix", "http://tms.internal:8080/events"},
			Dispatch:     configs.Dispatch{MaxAttempts: 3, Timeout: 5 * time.Second, UserAgent: "test"},
			Reconcile:    configs.Reconcile{RecheckInterval: time.Minute},
			Housekeeping: configs.Housekeeping{PaymentDeadline: 48 * time.Hour},
		}},
	))

	t.Run("relative hook", theory(
		When{content: `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k}
hooks: ["n8n.example.com/webhook"]
`},
		Then{err: configs.ErrInvalidConfig},
	))

	t.Run("hooks without secret", theory(
		When{content: `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k}
hooks: ["https://n8n.example.com/webhook/confix"]
`},
		Then{err: configs.ErrInvalidConfig},
	))

	t.Run("zero attempts", theory(
		When{content: `
database: {uri: "postgres://db/confix", schema_repository: /schema}
asaas: {api_key: k}
dispatch: {max_attempts: 0}
`},
		Then{err: configs.ErrInvalidConfig},
	))

	t.Run("no database", theory(
		When{content: `asaas: {api_key: k}`},
		Then{err: configs.ErrInvalidConfig},
	))
}
