// Package ai asks a chat completion model for freight quotes
// of routes which no pricing table covers.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

// ErrImplausible is returned when the model answers with a non-positive price or days.
var ErrImplausible = errors.New("implausible estimation")

const DefaultURL = "https://api.openai.com/v1/chat/completions"

// DefaultCubicFactor is the cubic factor (kg/m3) of road freight.
const DefaultCubicFactor = 300

type Config struct {
	// URL of an OpenAI compatible chat completions endpoint.
	URL    string
	APIKey string
	Model  string

	// CubicFactor (kg/m3) gives the chargeable weight of estimated quotes.
	// DefaultCubicFactor when not positive.
	CubicFactor float64

	HTTPClient *http.Client
}

type Estimator struct {
	cfg Config
}

var _ rating.Estimator = &Estimator{}

func New(cfg Config) (*Estimator, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ai: model is required")
	}
	if cfg.CubicFactor <= 0 {
		cfg.CubicFactor = DefaultCubicFactor
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Estimator{cfg: cfg}, nil
}

const systemPrompt = `Você é um especialista em fretes rodoviários e aéreos no Brasil.
Responda somente com um objeto JSON no formato {"carrier": string, "price": number, "delivery_days": integer},
onde price é o valor total do frete em reais.`

// Prompt renders the user message for req.
func Prompt(req rating.Request) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "Estime o frete de %s para %s.\n", cep.Format(req.OriginCEP), cep.Format(req.DestinationCEP))
	for nth, p := range req.Packages {
		qty := p.Quantity
		if qty <= 0 {
			qty = 1
		}
		fmt.Fprintf(
			b, "Volume %d: %d x %.2f kg, %.0f x %.0f x %.0f cm.\n",
			nth+1, qty, p.WeightKg, p.LengthCm, p.WidthCm, p.HeightCm,
		)
	}
	fmt.Fprintf(b, "Peso total: %.2f kg.\n", req.ActualWeight())
	fmt.Fprintf(b, "Valor declarado da mercadoria: %s.", req.DeclaredValue)
	return b.String()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Answer is what the model should reply.
type Answer struct {
	Carrier      string  `json:"carrier"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_days"`
}

func (e *Estimator) Estimate(ctx context.Context, req rating.Request) (rating.Quote, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(req)},
		},
		Temperature: 0,
	})
	if err != nil {
		return rating.Quote{}, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return rating.Quote{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.cfg.HTTPClient.Do(hreq)
	if err != nil {
		return rating.Quote{}, fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return rating.Quote{}, fmt.Errorf("ai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return rating.Quote{}, fmt.Errorf("ai: broken response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return rating.Quote{}, errors.New("ai: response has no choices")
	}

	ans, err := ParseAnswer(chat.Choices[0].Message.Content)
	if err != nil {
		return rating.Quote{}, err
	}

	price := money.FromReais(ans.Price)
	carrier := strings.TrimSpace(ans.Carrier)
	if carrier == "" {
		carrier = "Estimativa"
	}
	return rating.Quote{
		Carrier:            carrier,
		Source:             rating.FromAI,
		ActualWeightKg:     req.ActualWeight(),
		ChargeableWeightKg: req.ChargeableWeight(e.cfg.CubicFactor),
		Breakdown:          rating.Breakdown{Freight: price},
		Total:              price,
		DeliveryDays:       ans.DeliveryDays,
	}, nil
}

// ParseAnswer reads the model's reply. It may be wrapped in a fenced code block.
func ParseAnswer(content string) (Answer, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			// drop language tag like "json"
			content = content[nl+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	if start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}'); 0 <= start && start < end {
		content = content[start : end+1]
	}

	var ans Answer
	if err := json.Unmarshal([]byte(content), &ans); err != nil {
		return Answer{}, fmt.Errorf("ai: answer is not the expected JSON: %w", err)
	}
	if !(0 < ans.Price) || math.IsInf(ans.Price, 0) || ans.DeliveryDays <= 0 {
		return Answer{}, fmt.Errorf("%w: price %g, %d days", ErrImplausible, ans.Price, ans.DeliveryDays)
	}
	return ans, nil
}
