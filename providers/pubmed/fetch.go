package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}

	yearPattern = regexp.MustCompile(`\d{4}`)

	monthTable = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// lookupTimeout begrenzt die Datumsnachschlage für RSS-Einträge.
const lookupTimeout = 8 * time.Second

// Fetcher implementiert den Provider für PubMed.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Now    func() time.Time
}

// NewFetcher erstellt einen neuen PubMed-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, Client: httpClient, Now: time.Now}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return config.SourcePubMed
}

// Fetch sucht alle Artikel einer Zeitschrift im Zeitfenster und lädt deren Metadaten.
func (f *Fetcher) Fetch(ctx context.Context, source config.Source, window providers.Window) ([]providers.RawPaper, error) {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("source", source.Name))

	term := fmt.Sprintf(`"%s"[Journal] AND (%s:%s[Date - Publication])`,
		source.Name, window.Start.Format("2006/01/02"), window.End.Format("2006/01/02"))

	ids, err := f.searchIDs(ctx, term, f.pageSize())
	if err != nil {
		return nil, fmt.Errorf("esearch für %q fehlgeschlagen: %w", source.Name, err)
	}
	if len(ids) == 0 {
		log.Info("Keine Artikel im Zeitfenster gefunden.")
		return nil, nil
	}
	log.Info("PubMed-IDs gefunden.", zap.Int("count", len(ids)))

	articles, err := f.fetchArticles(ctx, ids)
	if err != nil {
		if len(articles) == 0 {
			return nil, fmt.Errorf("efetch für %q fehlgeschlagen: %w", source.Name, err)
		}
		log.Warn("efetch-Antwort nur teilweise lesbar.", zap.Error(err), zap.Int("parsed", len(articles)))
	}

	papers := make([]providers.RawPaper, 0, len(articles))
	for i := range articles {
		raw, err := mapArticle(&articles[i], source.Name, f.Now())
		if err != nil {
			log.Warn("Artikel übersprungen.", zap.Error(err))
			continue
		}
		papers = append(papers, raw)
	}
	return papers, nil
}

// LookupPublicationDate sucht einen Artikel per DOI oder Titel und gibt dessen
// Veröffentlichungsdatum zurück. ok ist false, wenn nichts gefunden wurde.
func (f *Fetcher) LookupPublicationDate(ctx context.Context, doi, title string) (time.Time, bool, error) {
	var term string
	switch {
	case doi != "":
		term = doi + "[doi]"
	case title != "":
		term = fmt.Sprintf(`"%s"[Title]`, title)
	default:
		return time.Time{}, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	ids, err := f.searchIDs(ctx, term, 1)
	if err != nil || len(ids) == 0 {
		return time.Time{}, false, err
	}
	articles, err := f.fetchArticles(ctx, ids[:1])
	if len(articles) == 0 {
		return time.Time{}, false, err
	}
	date, ok := resolveDate(articles[0].MedlineCitation.Article.Journal.PubDate)
	return date, ok, nil
}

func (f *Fetcher) pageSize() int {
	if f.Config.PubMedPageSize > 0 {
		return f.Config.PubMedPageSize
	}
	return 100
}

func (f *Fetcher) baseParams() url.Values {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("email", f.Config.PubMedEmail)
	params.Set("tool", f.Config.PubMedTool)
	if f.Config.PubMedAPIKey != "" {
		params.Set("api_key", f.Config.PubMedAPIKey)
	}
	return params
}

func (f *Fetcher) searchIDs(ctx context.Context, term string, retmax int) ([]string, error) {
	params := f.baseParams()
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(retmax))

	body, err := f.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var result ESearchResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("esearch-Antwort nicht lesbar: %w", err)
	}
	return result.ESearchResult.IdList, nil
}

// fetchArticles liest die efetch-Antwort Artikel für Artikel. Bei einem
// Lesefehler werden die bis dahin gelesenen Artikel zusammen mit dem Fehler zurückgegeben.
func (f *Fetcher) fetchArticles(ctx context.Context, ids []string) ([]PubmedArticle, error) {
	params := f.baseParams()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	body, err := f.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var articles []PubmedArticle
	dec := xml.NewDecoder(body)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return articles, nil
		}
		if err != nil {
			return articles, fmt.Errorf("efetch-XML nicht lesbar: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}
		var article PubmedArticle
		if err := dec.DecodeElement(&article, &start); err != nil {
			return articles, fmt.Errorf("efetch-XML nicht lesbar: %w", err)
		}
		articles = append(articles, article)
	}
}

func (f *Fetcher) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	u := strings.TrimRight(f.Config.PubMedBaseURL, "/") + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s antwortete mit Status %d", endpoint, resp.StatusCode)
	}
	return resp.Body, nil
}

// mapArticle konvertiert einen PubmedArticle in ein RawPaper.
func mapArticle(article *PubmedArticle, source string, now time.Time) (providers.RawPaper, error) {
	pmid := strings.TrimSpace(article.MedlineCitation.PMID)
	if pmid == "" {
		return providers.RawPaper{}, errors.New("artikel ohne PMID")
	}
	a := article.MedlineCitation.Article

	title := providers.StripMarkup(a.Title.Inner)
	if title == "" {
		title = "No Title"
	}

	var sections []string
	for _, t := range a.Abstract.Text {
		text := providers.StripMarkup(t.Inner)
		if text == "" {
			continue
		}
		if t.Label != "" {
			text = t.Label + ": " + text
		}
		sections = append(sections, text)
	}

	authors := make([]string, 0, len(a.Authors))
	for _, au := range a.Authors {
		switch {
		case au.LastName != "" && au.Initials != "":
			authors = append(authors, au.LastName+" "+au.Initials)
		case au.LastName != "":
			authors = append(authors, au.LastName)
		case au.CollectiveName != "":
			authors = append(authors, au.CollectiveName)
		}
	}

	date, ok := resolveDate(a.Journal.PubDate)
	if !ok {
		date = now
	}

	return providers.RawPaper{
		ExternalID:      &pmid,
		DOI:             extractDOI(article),
		Title:           title,
		Abstract:        providers.StringPtr(strings.Join(sections, "\n")),
		Authors:         authors,
		Source:          source,
		PublicationDate: date,
		Link:            fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
	}, nil
}

func extractDOI(article *PubmedArticle) *string {
	for _, id := range article.PubmedData.ArticleIDs {
		if id.IDType == "doi" {
			if doi := providers.StringPtr(id.Value); doi != nil {
				return doi
			}
		}
	}
	for _, loc := range article.MedlineCitation.Article.ELocationID {
		if loc.IDType == "doi" && loc.ValidYN != "N" {
			if doi := providers.StringPtr(loc.Value); doi != nil {
				return doi
			}
		}
	}
	return nil
}

// resolveDate wertet Year/Month/Day aus, sonst die Jahreszahl aus MedlineDate.
// ok ist false, wenn kein Jahr erkennbar ist.
func resolveDate(d PubDate) (time.Time, bool) {
	if year, err := strconv.Atoi(strings.TrimSpace(d.Year)); err == nil {
		month, day := time.January, 1
		if m, ok := parseMonth(d.Month); ok {
			month = m
		}
		if dd, err := strconv.Atoi(strings.TrimSpace(d.Day)); err == nil && validDay(year, month, dd) {
			day = dd
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}
	if y := yearPattern.FindString(d.MedlineDate); y != "" {
		year, _ := strconv.Atoi(y)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// parseMonth akzeptiert "03", "3", "Mar" und "March".
func parseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthTable[strings.ToLower(s[:3])]
	return m, ok
}

func validDay(year int, month time.Month, day int) bool {
	if day < 1 {
		return false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Day() == day
}
