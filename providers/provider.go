package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// RawPaper ist ein abgerufener, noch nicht gespeicherter Artikel.
type RawPaper struct {
	ExternalID      *string
	DOI             *string
	Title           string
	Abstract        *string
	Authors         []string
	Source          string
	PublicationDate time.Time
	Link            string
}

// Window ist der Veröffentlichungszeitraum eines Abrufs (beide Grenzen inklusive).
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingDays liefert das Fenster der letzten n Tage bis now.
func TrailingDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// Provider ist das Interface, das jeder Quelltyp (PubMed, RSS, EuropePMC) implementieren muss.
type Provider interface {
	// Fetch ruft alle Kandidaten einer Quelle im Zeitfenster ab.
	Fetch(ctx context.Context, source config.Source, window Window) ([]RawPaper, error)

	// Name gibt den Quelltyp zurück (z.B. "pubmed").
	Name() string
}

// BrowserTransport setzt einen Browser-User-Agent, da manche Verlage Standard-Clients blockieren.
type BrowserTransport struct {
	Transport http.RoundTripper
}

func (t *BrowserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// StripMarkup entfernt HTML/XML-Tags, dekodiert Entities und fasst Leerraum zusammen.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// StringPtr gibt nil für leere Strings zurück.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
