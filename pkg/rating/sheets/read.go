package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Row is a line of a spreadsheet.
type Row struct {
	// Line is the 1-based line (or row) number in the source.
	Line  int
	Cells []string
}

func (r Row) blank() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Read reads rows of a spreadsheet, choosing the format by the extension of name.
//
// ".csv" and ".txt" are read as CSV, ".xlsx" as XLSX.
func Read(name string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadCSV reads CSV rows.
//
// The input can be UTF-8 (with or without BOM) or Windows-1252.
// The separator is ";" or ",": the one splitting a known header line wins.
// Without a known header, it is whichever appears more in the first line having either.
func ReadCSV(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	guess := separator(text)
	other := ','
	if guess == ',' {
		other = ';'
	}

	rows, err := readCSV(text, guess)
	if err == nil {
		if _, _, herr := findHeader(rows); herr == nil {
			return rows, nil
		}
	}
	if alt, aerr := readCSV(text, other); aerr == nil {
		if _, _, herr := findHeader(alt); herr == nil {
			return alt, nil
		}
	}
	return rows, err
}

func readCSV(text string, comma rune) ([]Row, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	rows := []Row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			if perr := new(csv.ParseError); errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &LineError{Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, Row{Line: line, Cells: rec})
	}
	return rows, nil
}

func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	b, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding as Windows-1252: %w", err)
	}
	return string(b), nil
}

func separator(text string) rune {
	for _, line := range strings.Split(text, "\n") {
		semicolons, commas := strings.Count(line, ";"), strings.Count(line, ",")
		switch {
		case semicolons == 0 && commas == 0:
			// blank lines or titles above the header
			continue
		case semicolons >= commas:
			return ';'
		default:
			return ','
		}
	}
	return ';'
}

// ReadXLSX reads rows of the first sheet of an XLSX workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFormat)
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(cells))
	for nth, c := range cells {
		rows = append(rows, Row{Line: nth + 1, Cells: c})
	}
	return rows, nil
}
