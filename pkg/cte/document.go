package cte

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

// Status of CT-e at the tax authority.
type Status string

const (
	Authorized Status = "authorized"
	Cancelled  Status = "cancelled"
	Denied     Status = "denied"
	Pending    Status = "pending"
)

func AsStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case Authorized, Cancelled, Denied, Pending:
		return st, nil
	case "":
		return Authorized, nil
	}
	return "", fmt.Errorf("unknown CT-e status: %q", s)
}

// Document is what this service keeps of a CT-e.
type Document struct {
	AccessKey    Key
	Number       string
	Series       string
	EmittedAt    time.Time
	TrackingCode string
	FreightValue money.Cents
	XMLURL       string
	PDFURL       string
	Status       Status
}

type cteProc struct {
	XMLName xml.Name `xml:"cteProc"`
	CTe     cteDoc   `xml:"CTe"`
	Prot    struct {
		InfProt struct {
			Key   string `xml:"chCTe"`
			CStat string `xml:"cStat"`
		} `xml:"infProt"`
	} `xml:"protCTe"`
}

type cteDoc struct {
	InfCte struct {
		Id  string `xml:"Id,attr"`
		Ide struct {
			Number  string `xml:"nCT"`
			Series  string `xml:"serie"`
			Emitted string `xml:"dhEmi"`
		} `xml:"ide"`
		Compl struct {
			Obs     string `xml:"xObs"`
			ObsCont []struct {
				Text string `xml:"xTexto"`
			} `xml:"ObsCont"`
		} `xml:"compl"`
		VPrest struct {
			Total string `xml:"vTPrest"`
		} `xml:"vPrest"`
	} `xml:"infCte"`
}

var trackingCodeIn = regexp.MustCompile(`CFX\d{9}BR`)

// ParseXML reads a CT-e XML, either "cteProc" (with the protocol) or a bare "CTe".
//
// The tracking code is searched in the observations of the document.
func ParseXML(b []byte) (Document, error) {
	var doc cteDoc
	status := Pending
	keyText := ""

	var proc cteProc
	if err := xml.Unmarshal(b, &proc); err == nil && proc.CTe.InfCte.Id != "" {
		doc = proc.CTe
		keyText = proc.Prot.InfProt.Key
		status = statusOf(proc.Prot.InfProt.CStat)
	} else {
		if err := xml.Unmarshal(b, &doc); err != nil {
			return Document{}, fmt.Errorf("not a CT-e XML: %w", err)
		}
		if doc.InfCte.Id == "" {
			return Document{}, errors.New("not a CT-e XML: infCte is not found")
		}
	}
	if keyText == "" {
		keyText = doc.InfCte.Id
	}

	key, err := ParseKey(keyText)
	if err != nil {
		return Document{}, err
	}

	d := Document{
		AccessKey: key,
		Number:    strings.TrimSpace(doc.InfCte.Ide.Number),
		Series:    strings.TrimSpace(doc.InfCte.Ide.Series),
		Status:    status,
	}
	if d.Number == "" {
		d.Number = key.Number()
	}
	if emitted := strings.TrimSpace(doc.InfCte.Ide.Emitted); emitted != "" {
		t, err := time.Parse(time.RFC3339, emitted)
		if err != nil {
			return Document{}, fmt.Errorf("dhEmi: %w", err)
		}
		d.EmittedAt = t
	}
	if v := strings.TrimSpace(doc.InfCte.VPrest.Total); v != "" {
		value, err := money.Parse(v)
		if err != nil {
			return Document{}, fmt.Errorf("vTPrest: %w", err)
		}
		d.FreightValue = value
	}

	texts := []string{doc.InfCte.Compl.Obs}
	for _, o := range doc.InfCte.Compl.ObsCont {
		texts = append(texts, o.Text)
	}
	for _, t := range texts {
		if m := trackingCodeIn.FindString(strings.ToUpper(t)); m != "" {
			d.TrackingCode = m
			break
		}
	}
	return d, nil
}

func statusOf(cStat string) Status {
	switch strings.TrimSpace(cStat) {
	case "100":
		return Authorized
	case "101", "135":
		return Cancelled
	case "110", "301", "302":
		return Denied
	}
	return Pending
}
