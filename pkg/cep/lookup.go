package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public BrasilAPI endpoint.
const DefaultBaseURL = "https://brasilapi.com.br"

var ErrNotFound = errors.New("CEP not found")

// Address is what a CEP lookup tells about a place.
type Address struct {
	CEP      string `json:"cep"`
	Street   string `json:"street"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// Lookup finds the address of a CEP.
type Lookup interface {
	Lookup(ctx context.Context, cep string) (Address, error)
}

type brasilAPI struct {
	base   *url.URL
	client *http.Client
}

// BrasilAPI returns a Lookup querying "{baseURL}/api/cep/v1/{cep}".
func BrasilAPI(baseURL string, timeout time.Duration) (Lookup, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("cep lookup: base url should be absolute: %s", baseURL)
	}
	return &brasilAPI{base: u, client: &http.Client{Timeout: timeout}}, nil
}

func (b *brasilAPI) Lookup(ctx context.Context, c string) (Address, error) {
	norm, err := Normalize(c)
	if err != nil {
		return Address{}, err
	}

	u := b.base.JoinPath("api", "cep", "v1", norm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Address{}, fmt.Errorf("%w: %s", ErrNotFound, norm)
	case resp.StatusCode/100 != 2:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return Address{}, fmt.Errorf(
			"cep lookup: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var payload struct {
		CEP          string `json:"cep"`
		State        string `json:"state"`
		City         string `json:"city"`
		Neighborhood string `json:"neighborhood"`
		Street       string `json:"street"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Address{}, fmt.Errorf("cep lookup: broken response: %w", err)
	}
	return Address{
		CEP:      norm,
		Street:   payload.Street,
		District: payload.Neighborhood,
		City:     payload.City,
		State:    payload.State,
	}, nil
}
