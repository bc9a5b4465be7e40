// Package sheets imports carrier price sheets into pricing tables.
//
// Two layouts are known.
//
// Jadlog (wide), a row per destination range with a column per weight band:
//
//	UF;CIDADE/REGIAO;CEP INICIAL;CEP FINAL;PRAZO;ATE 1KG;ATE 5KG;ATE 10KG;KG ADICIONAL
//	SP;CAPITAL;01000-000;05999-999;1;15,00;25,00;40,00;3,50
//
// Alfa (long), a row per weight band:
//
//	CEP INICIAL;CEP FINAL;PRAZO;PESO INICIAL;PESO FINAL;VALOR;EXCEDENTE
//	01000-000;05999-999;1;0;1;15,00;3,50
//	01000-000;05999-999;1;1;5;25,00;3,50
//
// Headers are matched ignoring case and accents.
package sheets

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type Carrier string

const (
	Jadlog Carrier = "jadlog"
	Alfa   Carrier = "alfa"
)

var (
	ErrUnknownLayout = errors.New("unknown sheet layout")
	ErrNoHeader      = errors.New("header line is not found")
)

// LineError is an error at a line of the sheet.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineErrorf(line int, format string, args ...any) error {
	return &LineError{Line: line, Err: fmt.Errorf(format, args...)}
}

// Sheet is the content of an imported price sheet.
type Sheet struct {
	Carrier Carrier
	Zones   []rating.Zone
	Rates   []rating.Rate
}

// Matches reports whether the sheet can be imported into a table of carrier,
// that is, carrier names the sheet's carrier.
func (s Sheet) Matches(carrier string) bool {
	return strings.Contains(strings.ToLower(carrier), string(s.Carrier))
}

// ApplyTo replaces zones and rates of t with the sheet's.
func (s Sheet) ApplyTo(t rating.Table) rating.Table {
	t.Zones = s.Zones
	t.Rates = s.Rates
	return t
}

const (
	colUF         = "UF"
	colRegion     = "CIDADE/REGIAO"
	colCity       = "CIDADE"
	colCEPFrom    = "CEP INICIAL"
	colCEPTo      = "CEP FINAL"
	colDays       = "PRAZO"
	colWeightFrom = "PESO INICIAL"
	colWeightTo   = "PESO FINAL"
	colPrice      = "VALOR"
	colExcess     = "EXCEDENTE"
	colAdditional = "KG ADICIONAL"
)

// headerLookahead is how many leading non-blank lines are searched for the header,
// to skip titles above it.
const headerLookahead = 10

var unaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// canon returns the canonical form of a header cell:
// accents removed, upper case, spaces collapsed.
func canon(s string) string {
	t, _, err := transform.String(unaccent, s)
	if err != nil {
		t = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(t)), " ")
}

// bandColumn matches "ATE 10KG", "ATÉ 10 KG", "10 KG", "0,5KG".
var bandColumn = regexp.MustCompile(`^(?:ATE\s*)?(\d+(?:[.,]\d+)?)\s*KG$`)

type header struct {
	line    int
	columns map[string]int
	bands   []band
}

type band struct {
	column int
	maxKg  float64
}

func parseHeader(r Row) header {
	h := header{line: r.Line, columns: map[string]int{}}
	for nth, cell := range r.Cells {
		c := canon(cell)
		if c == "" {
			continue
		}
		if m := bandColumn.FindStringSubmatch(c); m != nil {
			kg, err := money.ParseNumber(m[1])
			if err == nil {
				h.bands = append(h.bands, band{column: nth, maxKg: kg})
				continue
			}
		}
		if _, ok := h.columns[c]; !ok {
			h.columns[c] = nth
		}
	}
	return h
}

func (h header) has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := h.columns[c]; !ok {
			return false
		}
	}
	return true
}

func (h header) carrier() (Carrier, bool) {
	switch {
	case h.has(colCEPFrom, colCEPTo, colWeightFrom, colWeightTo, colPrice):
		return Alfa, true
	case h.has(colCEPFrom, colCEPTo) && len(h.bands) > 0:
		return Jadlog, true
	}
	return "", false
}

// Detect tells the carrier layout of rows.
func Detect(rows []Row) (Carrier, error) {
	_, c, err := findHeader(rows)
	return c, err
}

func findHeader(rows []Row) (int, Carrier, error) {
	seen := 0
	for nth, r := range rows {
		if r.blank() {
			continue
		}
		if c, ok := parseHeader(r).carrier(); ok {
			return nth, c, nil
		}
		seen += 1
		if headerLookahead <= seen {
			break
		}
	}
	if seen == 0 {
		return -1, "", ErrNoHeader
	}
	return -1, "", ErrUnknownLayout
}

// Parse reads a price sheet in either layout.
func Parse(rows []Row) (Sheet, error) {
	at, carrier, err := findHeader(rows)
	if err != nil {
		return Sheet{}, err
	}
	h := parseHeader(rows[at])
	body := rows[at+1:]

	switch carrier {
	case Jadlog:
		return parseJadlog(h, body)
	default:
		return parseAlfa(h, body)
	}
}

func cell(r Row, col int) string {
	if col < 0 || len(r.Cells) <= col {
		return ""
	}
	return strings.TrimSpace(r.Cells[col])
}

func (h header) cell(r Row, name string) string {
	col, ok := h.columns[name]
	if !ok {
		return ""
	}
	return cell(r, col)
}

var digitsOnly = regexp.MustCompile(`^\d{5,7}$`)

// cepOf normalizes a CEP cell. Spreadsheets drop leading zeros of numeric cells,
// so 5 to 7 digit numbers are zero-padded.
func cepOf(line int, raw string) (string, error) {
	if digitsOnly.MatchString(raw) {
		raw = strings.Repeat("0", 8-len(raw)) + raw
	}
	c, err := cep.Normalize(raw)
	if err != nil {
		return "", &LineError{Line: line, Err: err}
	}
	return c, nil
}

func (h header) rangeOf(r Row) (rating.CEPRange, error) {
	from, err := cepOf(r.Line, h.cell(r, colCEPFrom))
	if err != nil {
		return rating.CEPRange{}, err
	}
	to, err := cepOf(r.Line, h.cell(r, colCEPTo))
	if err != nil {
		return rating.CEPRange{}, err
	}
	rng := rating.CEPRange{From: from, To: to}
	if err := rng.Validate(); err != nil {
		return rating.CEPRange{}, &LineError{Line: r.Line, Err: err}
	}
	return rng, nil
}

var firstInt = regexp.MustCompile(`\d+`)

// daysOf reads "3", "3 dias" or "D+3".
func daysOf(line int, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	m := firstInt.FindString(raw)
	if m == "" {
		return 0, lineErrorf(line, "bad delivery days: %q", raw)
	}
	return strconv.Atoi(m)
}

func priceOf(line int, column string, raw string) (money.Cents, error) {
	p, err := money.Parse(raw)
	if err != nil {
		return 0, lineErrorf(line, "%s: %w", column, err)
	}
	if p < 0 {
		return 0, lineErrorf(line, "%s: negative price %s", column, raw)
	}
	return p, nil
}

// zoneCodes gives unique zone codes.
type zoneCodes map[string]int

func (zc zoneCodes) next(base string) string {
	base = canon(base)
	if base == "" {
		base = "ZONA"
	}
	zc[base] += 1
	if n := zc[base]; n > 1 {
		return fmt.Sprintf("%s #%d", base, n)
	}
	return base
}

func parseJadlog(h header, rows []Row) (Sheet, error) {
	sheet := Sheet{Carrier: Jadlog}
	codes := zoneCodes{}

	additional, hasAdditional := h.columns[colAdditional]
	region := colRegion
	if _, ok := h.columns[region]; !ok {
		region = colCity
	}

	for _, r := range rows {
		if r.blank() {
			continue
		}
		rng, err := h.rangeOf(r)
		if err != nil {
			return Sheet{}, err
		}
		days, err := daysOf(r.Line, h.cell(r, colDays))
		if err != nil {
			return Sheet{}, err
		}

		zone := rating.Zone{
			Code:         codes.next(strings.TrimSpace(h.cell(r, colUF) + " " + h.cell(r, region))),
			Range:        rng,
			DeliveryDays: days,
		}
		if hasAdditional {
			if raw := cell(r, additional); raw != "" {
				fee, err := priceOf(r.Line, colAdditional, raw)
				if err != nil {
					return Sheet{}, err
				}
				zone.ExcessPerKg = &fee
			}
		}
		sheet.Zones = append(sheet.Zones, zone)

		prev := 0.0
		for _, b := range h.bands {
			raw := cell(r, b.column)
			if raw == "" || raw == "-" {
				prev = b.maxKg
				continue
			}
			price, err := priceOf(r.Line, fmt.Sprintf("ATE %gKG", b.maxKg), raw)
			if err != nil {
				return Sheet{}, err
			}
			if b.maxKg <= prev {
				return Sheet{}, lineErrorf(h.line, "band columns should be in ascending order: %g after %g", b.maxKg, prev)
			}
			sheet.Rates = append(sheet.Rates, rating.Rate{
				ZoneCode: zone.Code, MinWeightKg: prev, MaxWeightKg: b.maxKg, Price: price,
			})
			prev = b.maxKg
		}
	}
	return sheet, nil
}

func parseAlfa(h header, rows []Row) (Sheet, error) {
	sheet := Sheet{Carrier: Alfa}
	codes := zoneCodes{}
	zoneAt := map[rating.CEPRange]int{}

	for _, r := range rows {
		if r.blank() {
			continue
		}
		rng, err := h.rangeOf(r)
		if err != nil {
			return Sheet{}, err
		}
		days, err := daysOf(r.Line, h.cell(r, colDays))
		if err != nil {
			return Sheet{}, err
		}

		var excess *money.Cents
		if raw := h.cell(r, colExcess); raw != "" {
			fee, err := priceOf(r.Line, colExcess, raw)
			if err != nil {
				return Sheet{}, err
			}
			excess = &fee
		}

		idx, ok := zoneAt[rng]
		if !ok {
			idx = len(sheet.Zones)
			zoneAt[rng] = idx
			sheet.Zones = append(sheet.Zones, rating.Zone{
				Code:         codes.next(strings.TrimSpace(h.cell(r, colUF) + " " + cep.Format(rng.From))),
				Range:        rng,
				DeliveryDays: days,
				ExcessPerKg:  excess,
			})
		} else {
			z := &sheet.Zones[idx]
			if z.DeliveryDays != days {
				return Sheet{}, lineErrorf(r.Line, "delivery days %d differ from %d of the same range", days, z.DeliveryDays)
			}
			if z.ExcessPerKg == nil {
				z.ExcessPerKg = excess
			} else if excess != nil && *excess != *z.ExcessPerKg {
				return Sheet{}, lineErrorf(r.Line, "excess fee %s differs from %s of the same range", *excess, *z.ExcessPerKg)
			}
		}

		from, err := money.ParseNumber(h.cell(r, colWeightFrom))
		if err != nil {
			return Sheet{}, lineErrorf(r.Line, "%s: %w", colWeightFrom, err)
		}
		to, err := money.ParseNumber(h.cell(r, colWeightTo))
		if err != nil {
			return Sheet{}, lineErrorf(r.Line, "%s: %w", colWeightTo, err)
		}
		if from < 0 || to <= from {
			return Sheet{}, lineErrorf(r.Line, "bad weight band (%g, %g]", from, to)
		}
		price, err := priceOf(r.Line, colPrice, h.cell(r, colPrice))
		if err != nil {
			return Sheet{}, err
		}
		sheet.Rates = append(sheet.Rates, rating.Rate{
			ZoneCode: sheet.Zones[idx].Code, MinWeightKg: from, MaxWeightKg: to, Price: price,
		})
	}
	return sheet, nil
}
