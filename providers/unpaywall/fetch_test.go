package unpaywall

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

func TestOpenAccessURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "me@example.org" {
			t.Errorf("email missing: %s", r.URL.RawQuery)
		}
		if strings.Contains(r.URL.EscapedPath(), "%2F") {
			t.Errorf("DOI-Schrägstrich escaped: %s", r.URL.EscapedPath())
		}
		switch r.URL.Path {
		case "/10.1/pdf":
			w.Write([]byte(`{"is_oa":true,"best_oa_location":{"url":"https://x/landing","url_for_pdf":"https://x/file.pdf"}}`))
		case "/10.1/landing":
			w.Write([]byte(`{"is_oa":true,"best_oa_location":{"url":"https://x/landing"}}`))
		case "/10.1/closed":
			w.Write([]byte(`{"is_oa":false,"best_oa_location":null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{UnpaywallBaseURL: srv.URL, UnpaywallEmail: "me@example.org"}, zap.NewNop())

	tests := map[string]string{
		"10.1/pdf":     "https://x/file.pdf",
		"10.1/landing": "https://x/landing",
		"10.1/closed":  "",
		"10.1/missing": "",
	}
	for doi, want := range tests {
		got, err := f.OpenAccessURL(context.Background(), doi)
		if err != nil {
			t.Fatalf("%s: %v", doi, err)
		}
		if got != want {
			t.Errorf("%s: got %q, want %q", doi, got, want)
		}
	}
}

func TestOpenAccessURLNotConfigured(t *testing.T) {
	t.Parallel()

	f := NewFetcher(&config.Config{}, zap.NewNop())
	if _, err := f.OpenAccessURL(context.Background(), "10.1/x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestDOIPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"10.1038/nature12373":          "10.1038/nature12373",
		"10.1002/(SICI)1097-0258":      "10.1002/%28SICI%291097-0258",
		"10.1000/a#b?c":                "10.1000/a%23b%3Fc",
		"10.1016/j.neuron.2020.01.001": "10.1016/j.neuron.2020.01.001",
	}
	for doi, want := range tests {
		if got := doiPath(doi); got != want {
			t.Errorf("doiPath(%q) = %q, want %q", doi, got, want)
		}
	}
}
