// Package unpaywall ermittelt freie Volltext-Links zu einer DOI.
package unpaywall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// ErrNotConfigured wird zurückgegeben, wenn keine Kontakt-E-Mail gesetzt ist.
var ErrNotConfigured = errors.New("unpaywall email ist nicht konfiguriert")

// Response repräsentiert die JSON-Antwort der Unpaywall-API.
type Response struct {
	IsOA           bool `json:"is_oa"`
	BestOALocation *struct {
		URL       string `json:"url"`
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}

// Fetcher kapselt die Logik für Unpaywall.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
}

// NewFetcher erstellt einen neuen Unpaywall-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, Client: httpClient}
}

// doiPath lässt die Schrägstriche der DOI stehen und escaped nur die Segmente.
func doiPath(doi string) string {
	segments := strings.Split(doi, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// OpenAccessURL liefert den besten freien Link (bevorzugt PDF) oder "".
func (f *Fetcher) OpenAccessURL(ctx context.Context, doi string) (string, error) {
	if f.Config.UnpaywallEmail == "" {
		return "", ErrNotConfigured
	}

	u := fmt.Sprintf("%s/%s?email=%s", strings.TrimRight(f.Config.UnpaywallBaseURL, "/"),
		doiPath(doi), url.QueryEscape(f.Config.UnpaywallEmail))
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Rufe Unpaywall API auf.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unpaywall request failed with status: %d", resp.StatusCode)
	}

	var ur Response
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", err
	}
	if ur.BestOALocation == nil {
		log.Debug("Kein Open-Access-Link in Unpaywall-Antwort gefunden.")
		return "", nil
	}
	if ur.BestOALocation.URLForPDF != "" {
		return ur.BestOALocation.URLForPDF, nil
	}
	return ur.BestOALocation.URL, nil
}
