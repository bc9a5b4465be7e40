package rating

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

var (
	ErrNoZone       = errors.New("destination is not in any zone")
	ErrNoRate       = errors.New("no rate for the weight")
	ErrInvalidTable = errors.New("invalid pricing table")
)

// Table is a pricing table of a carrier.
type Table struct {
	Id       string `json:"id"`
	Carrier  string `json:"carrier"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Priority int    `json:"priority"`

	// CubicFactor converts volume into weight, in kg/m3.
	CubicFactor float64 `json:"cubic_factor"`

	AdValoremPct float64     `json:"ad_valorem_pct"`
	GrisPct      float64     `json:"gris_pct"`
	GrisMin      money.Cents `json:"gris_min"`
	DispatchFee  money.Cents `json:"dispatch_fee"`
	MarkupPct    float64     `json:"markup_pct"`
	HandlingDays int         `json:"handling_days"`

	// ExcessPerKg is charged per kg (or fraction) above the heaviest band.
	ExcessPerKg money.Cents `json:"excess_per_kg"`

	// Origins served by this table. Empty means everywhere.
	Origins []CEPRange `json:"origins"`

	Zones []Zone `json:"zones"`
	Rates []Rate `json:"rates"`
}

type Zone struct {
	Code         string   `json:"code"`
	Range        CEPRange `json:"range"`
	DeliveryDays int      `json:"delivery_days"`

	// ExcessPerKg overrides Table.ExcessPerKg when not nil.
	ExcessPerKg *money.Cents `json:"excess_per_kg,omitempty"`
}

// Rate is a weight band of a zone: MinWeightKg < weight <= MaxWeightKg.
type Rate struct {
	ZoneCode    string      `json:"zone_code"`
	MinWeightKg float64     `json:"min_weight_kg"`
	MaxWeightKg float64     `json:"max_weight_kg"`
	Price       money.Cents `json:"price"`
}

type Breakdown struct {
	Freight     money.Cents `json:"freight"`
	Excess      money.Cents `json:"excess"`
	AdValorem   money.Cents `json:"ad_valorem"`
	Gris        money.Cents `json:"gris"`
	DispatchFee money.Cents `json:"dispatch_fee"`
	Markup      money.Cents `json:"markup"`
}

func (b Breakdown) Sum() money.Cents {
	return b.Freight + b.Excess + b.AdValorem + b.Gris + b.DispatchFee + b.Markup
}

// Source tells how a quote is computed.
type Source string

const (
	FromTable Source = "table"
	FromAI    Source = "ai"
)

type Quote struct {
	TableId   string `json:"table_id,omitempty"`
	TableName string `json:"table_name,omitempty"`
	Carrier   string `json:"carrier"`
	ZoneCode  string `json:"zone_code,omitempty"`
	Priority  int    `json:"-"`
	Source    Source `json:"source"`

	ActualWeightKg     float64 `json:"actual_weight_kg"`
	CubedWeightKg      float64 `json:"cubed_weight_kg"`
	ChargeableWeightKg float64 `json:"chargeable_weight_kg"`

	Breakdown    Breakdown   `json:"breakdown"`
	Total        money.Cents `json:"total"`
	DeliveryDays int         `json:"delivery_days"`
}

// ServesOrigin reports whether the table takes parcels from the normalized CEP.
func (t Table) ServesOrigin(c string) bool {
	if len(t.Origins) == 0 {
		return true
	}
	return slices.ContainsFunc(t.Origins, func(r CEPRange) bool { return r.Contains(c) })
}

// ZoneFor finds the zone of a normalized CEP.
//
// When zones overlap, the narrowest one wins. Ties go to the first declared.
func (t Table) ZoneFor(c string) (Zone, bool) {
	found := -1
	for i, z := range t.Zones {
		if !z.Range.Contains(c) {
			continue
		}
		if found < 0 || z.Range.Width() < t.Zones[found].Range.Width() {
			found = i
		}
	}
	if found < 0 {
		return Zone{}, false
	}
	return t.Zones[found], true
}

func (t Table) excessPerKg(z Zone) money.Cents {
	if z.ExcessPerKg != nil {
		return *z.ExcessPerKg
	}
	return t.ExcessPerKg
}

// Rate computes a quote of req with this table.
//
// req should be validated already.
//
// It returns ErrNoZone when the destination is out of the zones,
// and ErrNoRate when no band covers the chargeable weight.
func (t Table) Rate(req Request) (Quote, error) {
	zone, ok := t.ZoneFor(req.DestinationCEP)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s (table %s)", ErrNoZone, req.DestinationCEP, t.Id)
	}

	actual := req.ActualWeight()
	cubed := req.CubedWeight(t.CubicFactor)
	chargeable := ceilTo10g(math.Max(actual, cubed))

	freight, excess, err := t.freight(zone, chargeable)
	if err != nil {
		return Quote{}, err
	}

	b := Breakdown{
		Freight:     freight,
		Excess:      excess,
		AdValorem:   req.DeclaredValue.Percent(t.AdValoremPct),
		Gris:        max(req.DeclaredValue.Percent(t.GrisPct), t.GrisMin),
		DispatchFee: t.DispatchFee,
	}
	b.Markup = b.Sum().Percent(t.MarkupPct)

	return Quote{
		TableId:            t.Id,
		TableName:          t.Name,
		Carrier:            t.Carrier,
		ZoneCode:           zone.Code,
		Priority:           t.Priority,
		Source:             FromTable,
		ActualWeightKg:     roundTo10g(actual),
		CubedWeightKg:      roundTo10g(cubed),
		ChargeableWeightKg: chargeable,
		Breakdown:          b,
		Total:              b.Sum(),
		DeliveryDays:       zone.DeliveryDays + t.HandlingDays,
	}, nil
}

func (t Table) freight(zone Zone, weight float64) (freight money.Cents, excess money.Cents, err error) {
	var heaviest *Rate
	for i := range t.Rates {
		r := &t.Rates[i]
		if r.ZoneCode != zone.Code {
			continue
		}
		if r.MinWeightKg < weight && weight <= r.MaxWeightKg {
			return r.Price, 0, nil
		}
		if heaviest == nil || heaviest.MaxWeightKg < r.MaxWeightKg {
			heaviest = r
		}
	}

	perKg := t.excessPerKg(zone)
	if heaviest == nil || weight <= heaviest.MaxWeightKg || perKg <= 0 {
		return 0, 0, fmt.Errorf("%w: %.2f kg in zone %s (table %s)", ErrNoRate, weight, zone.Code, t.Id)
	}

	over := math.Ceil(weight - heaviest.MaxWeightKg - 1e-9)
	return heaviest.Price, perKg * money.Cents(over), nil
}

func roundTo10g(kg float64) float64 {
	return math.Round(kg*100) / 100
}

// Validate checks consistency of the table.
//
// Errors wrap ErrInvalidTable and tell every problem found.
func (t Table) Validate() error {
	problems := []string{}
	problem := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(t.Carrier) == "" {
		problem("carrier is empty")
	}
	if strings.TrimSpace(t.Name) == "" {
		problem("name is empty")
	}
	if !(0 < t.CubicFactor) {
		problem("cubic factor should be positive")
	}
	for name, pct := range map[string]float64{
		"ad valorem": t.AdValoremPct, "gris": t.GrisPct, "markup": t.MarkupPct,
	} {
		if pct < 0 {
			problem("%s percentage should not be negative", name)
		}
	}
	if t.GrisMin < 0 || t.DispatchFee < 0 || t.ExcessPerKg < 0 {
		problem("fees should not be negative")
	}
	if t.HandlingDays < 0 {
		problem("handling days should not be negative")
	}
	for _, o := range t.Origins {
		if err := o.Validate(); err != nil {
			problem("origin: %s", err)
		}
	}

	zones := map[string]bool{}
	for _, z := range t.Zones {
		if z.Code == "" {
			problem("zone without code")
		} else if zones[z.Code] {
			problem("zone %s: declared twice", z.Code)
		}
		zones[z.Code] = true
		if err := z.Range.Validate(); err != nil {
			problem("zone %s: %s", z.Code, err)
		}
		if z.DeliveryDays < 0 {
			problem("zone %s: delivery days should not be negative", z.Code)
		}
		if z.ExcessPerKg != nil && *z.ExcessPerKg < 0 {
			problem("zone %s: excess fee should not be negative", z.Code)
		}
	}

	bands := map[string][]Rate{}
	for _, r := range t.Rates {
		if !zones[r.ZoneCode] {
			problem("rate for unknown zone %q", r.ZoneCode)
			continue
		}
		if r.MinWeightKg < 0 || r.MaxWeightKg <= r.MinWeightKg {
			problem("zone %s: bad band (%g, %g]", r.ZoneCode, r.MinWeightKg, r.MaxWeightKg)
			continue
		}
		if r.Price < 0 {
			problem("zone %s: band (%g, %g]: price should not be negative", r.ZoneCode, r.MinWeightKg, r.MaxWeightKg)
		}
		bands[r.ZoneCode] = append(bands[r.ZoneCode], r)
	}
	for _, code := range sortedKeys(bands) {
		rs := bands[code]
		slices.SortFunc(rs, func(a, b Rate) int { return cmp.Compare(a.MinWeightKg, b.MinWeightKg) })
		for i := 1; i < len(rs); i++ {
			if rs[i].MinWeightKg < rs[i-1].MaxWeightKg {
				problem(
					"zone %s: bands (%g, %g] and (%g, %g] overlap", code,
					rs[i-1].MinWeightKg, rs[i-1].MaxWeightKg, rs[i].MinWeightKg, rs[i].MaxWeightKg,
				)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(problems, "; "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

