package rating

import (
	"errors"
	"fmt"
	"math"

	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

var ErrInvalidRequest = errors.New("invalid quote request")

// CEPRange is an inclusive range of CEPs.
type CEPRange = cep.Range

// NormalizeCEP returns the 8 digit form of a CEP.
func NormalizeCEP(s string) (string, error) {
	return cep.Normalize(s)
}

type Package struct {
	WeightKg float64 `json:"weight_kg"`
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`

	// Quantity of identical packages. 0 means 1.
	Quantity int `json:"quantity,omitempty"`
}

func (p Package) count() float64 {
	if p.Quantity <= 0 {
		return 1
	}
	return float64(p.Quantity)
}

type Request struct {
	OriginCEP      string      `json:"origin_cep"`
	DestinationCEP string      `json:"destination_cep"`
	Packages       []Package   `json:"packages"`
	DeclaredValue  money.Cents `json:"declared_value"`
}

// Validate checks r and returns a copy of it with normalized CEPs.
//
// Errors wrap ErrInvalidRequest.
func (r Request) Validate() (Request, error) {
	orig, err := NormalizeCEP(r.OriginCEP)
	if err != nil {
		return r, fmt.Errorf("%w: origin: %w", ErrInvalidRequest, err)
	}
	dest, err := NormalizeCEP(r.DestinationCEP)
	if err != nil {
		return r, fmt.Errorf("%w: destination: %w", ErrInvalidRequest, err)
	}
	if len(r.Packages) == 0 {
		return r, fmt.Errorf("%w: no packages", ErrInvalidRequest)
	}
	for nth, p := range r.Packages {
		if !positive(p.WeightKg) {
			return r, fmt.Errorf("%w: packages[%d]: weight should be positive", ErrInvalidRequest, nth)
		}
		if !positive(p.LengthCm) || !positive(p.WidthCm) || !positive(p.HeightCm) {
			return r, fmt.Errorf("%w: packages[%d]: dimensions should be positive", ErrInvalidRequest, nth)
		}
		if p.Quantity < 0 {
			return r, fmt.Errorf("%w: packages[%d]: quantity should not be negative", ErrInvalidRequest, nth)
		}
	}
	if r.DeclaredValue < 0 {
		return r, fmt.Errorf("%w: declared value should not be negative", ErrInvalidRequest)
	}

	r.OriginCEP = orig
	r.DestinationCEP = dest
	return r, nil
}

func positive(f float64) bool {
	return 0 < f && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// ActualWeight is the total weight of packages, in kg, to the milligram.
func (r Request) ActualWeight() float64 {
	w := 0.0
	for _, p := range r.Packages {
		w += p.WeightKg * p.count()
	}
	return toMilligram(w)
}

// CubedWeight is the volumetric weight of packages, in kg, to the milligram.
//
// factor is in kg/m3; package dimensions are in cm.
func (r Request) CubedWeight(factor float64) float64 {
	w := 0.0
	for _, p := range r.Packages {
		m3 := p.LengthCm * p.WidthCm * p.HeightCm / 1_000_000
		w += m3 * factor * p.count()
	}
	return toMilligram(w)
}

// ChargeableWeight is the greater of actual and cubed weight,
// rounded up to 10 g.
func (r Request) ChargeableWeight(factor float64) float64 {
	return ceilTo10g(math.Max(r.ActualWeight(), r.CubedWeight(factor)))
}

// toMilligram drops representation error below a milligram (0.1 + 0.2 = 0.30000000000000004).
func toMilligram(kg float64) float64 {
	return math.Round(kg*1e6) / 1e6
}

// ceilTo10g rounds kg up to 10 g. It is never less than toMilligram(kg).
func ceilTo10g(kg float64) float64 {
	mg := math.Round(kg * 1e6)
	return math.Ceil(mg/1e4) / 100
}
