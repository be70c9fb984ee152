package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

// Memory ist eine In-Memory-Implementierung des Repositorys für Tests und
// Trockenläufe. Sie bildet Filter und Sortierung des Repositorys nach.
type Memory struct {
	mu        sync.Mutex
	now       func() time.Time
	papers    []models.Paper
	summaries map[uint]models.Summary
	fetchLogs []models.SourceFetchLog
	jobRuns   []models.JobRun
	prefs     map[string]models.UserPreference
	nextID    uint

	// FailUpdatePaper lässt UpdatePaper für die angegebenen IDs fehlschlagen.
	FailUpdatePaper map[uint]error
	// FailSaveSummary lässt SaveSummary für die angegebenen Paper-IDs fehlschlagen.
	FailSaveSummary map[uint]error
}

// NewMemory erstellt einen leeren In-Memory-Speicher.
func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		summaries: make(map[uint]models.Summary),
		prefs:     make(map[string]models.UserPreference),
	}
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

func clonePaper(p models.Paper) models.Paper {
	p.Authors = append(p.Authors[:0:0], p.Authors...)
	p.TopicLabels = append(p.TopicLabels[:0:0], p.TopicLabels...)
	p.Summary = nil
	return p
}

func (m *Memory) find(match func(*models.Paper) bool) (*models.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.papers {
		if match(&m.papers[i]) {
			p := clonePaper(m.papers[i])
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// PaperByExternalID sucht ein Paper über die externe Kennung.
func (m *Memory) PaperByExternalID(_ context.Context, id string) (*models.Paper, error) {
	return m.find(func(p *models.Paper) bool { return p.ExternalID != nil && *p.ExternalID == id })
}

// PaperByDOI sucht ein Paper über die DOI.
func (m *Memory) PaperByDOI(_ context.Context, doi string) (*models.Paper, error) {
	return m.find(func(p *models.Paper) bool { return p.DOI != nil && *p.DOI == doi })
}

// PaperByTitle sucht ein Paper mit gleichem Titel ohne Beachtung der Groß-/Kleinschreibung.
func (m *Memory) PaperByTitle(_ context.Context, title string) (*models.Paper, error) {
	want := strings.ToLower(title)
	return m.find(func(p *models.Paper) bool { return strings.ToLower(p.Title) == want })
}

// CreatePaper legt ein neues Paper an; externe Kennung und DOI müssen eindeutig sein.
func (m *Memory) CreatePaper(_ context.Context, p *models.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(p, 0); err != nil {
		return err
	}
	p.ID = m.id()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	if p.ClassificationStatus == "" {
		p.ClassificationStatus = models.ClassificationPending
	}
	if p.SummarizationStatus == "" {
		p.SummarizationStatus = models.SummarizationPending
	}
	m.papers = append(m.papers, clonePaper(*p))
	return nil
}

func (m *Memory) checkUnique(p *models.Paper, self uint) error {
	for i := range m.papers {
		other := &m.papers[i]
		if other.ID == self {
			continue
		}
		if p.ExternalID != nil && other.ExternalID != nil && *p.ExternalID == *other.ExternalID {
			return &UniqueViolation{Column: "external_id"}
		}
		if p.DOI != nil && other.DOI != nil && *p.DOI == *other.DOI {
			return &UniqueViolation{Column: "doi"}
		}
	}
	return nil
}

// UpdatePaper schreibt nur die angegebenen Spalten eines bestehenden Papers.
func (m *Memory) UpdatePaper(_ context.Context, p *models.Paper, columns ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(columns) == 0 {
		return errors.New("updatepaper ohne spalten")
	}
	if err := m.FailUpdatePaper[p.ID]; err != nil {
		return err
	}
	if err := m.checkUnique(p, p.ID); err != nil {
		return err
	}
	for i := range m.papers {
		if m.papers[i].ID != p.ID {
			continue
		}
		stored := &m.papers[i]
		for _, c := range columns {
			if err := copyColumn(stored, p, c); err != nil {
				return err
			}
		}
		stored.UpdatedAt = m.now()
		p.UpdatedAt = stored.UpdatedAt
		return nil
	}
	return ErrNotFound
}

func copyColumn(dst, src *models.Paper, column string) error {
	switch column {
	case "external_id":
		dst.ExternalID = src.ExternalID
	case "abstract":
		dst.Abstract = src.Abstract
	case "topic_labels":
		dst.TopicLabels = append(src.TopicLabels[:0:0], src.TopicLabels...)
	case "research_type":
		dst.ResearchType = src.ResearchType
	case "classification_confidence":
		dst.ClassificationConfidence = src.ClassificationConfidence
	case "classification_status":
		dst.ClassificationStatus = src.ClassificationStatus
	case "summarization_status":
		dst.SummarizationStatus = src.SummarizationStatus
	default:
		return fmt.Errorf("unbekannte spalte %q", column)
	}
	return nil
}

func (m *Memory) pending(limit int, match func(*models.Paper) bool) []models.Paper {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Paper
	for i := range m.papers {
		if limit > 0 && len(out) >= limit {
			break
		}
		if match(&m.papers[i]) {
			out = append(out, clonePaper(m.papers[i]))
		}
	}
	return out
}

// PendingClassification liefert bis zu limit unklassifizierte Papers in ID-Reihenfolge.
func (m *Memory) PendingClassification(_ context.Context, limit int) ([]models.Paper, error) {
	return m.pending(limit, func(p *models.Paper) bool {
		return p.ClassificationStatus == "" || p.ClassificationStatus == models.ClassificationPending
	}), nil
}

// PendingSummarization liefert bis zu limit Papers mit Abstract ohne Zusammenfassung.
func (m *Memory) PendingSummarization(_ context.Context, limit int) ([]models.Paper, error) {
	return m.pending(limit, func(p *models.Paper) bool {
		pending := p.SummarizationStatus == "" || p.SummarizationStatus == models.SummarizationPending
		return pending && p.HasAbstract()
	}), nil
}

// SaveSummary speichert die Zusammenfassung und setzt den Paper-Status auf completed.
func (m *Memory) SaveSummary(_ context.Context, paper *models.Paper, summary *models.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailSaveSummary[paper.ID]; err != nil {
		return err
	}
	for i := range m.papers {
		if m.papers[i].ID != paper.ID {
			continue
		}
		summary.PaperID = paper.ID
		if existing, ok := m.summaries[paper.ID]; ok {
			summary.ID = existing.ID
		} else {
			summary.ID = m.id()
		}
		summary.CreatedAt = m.now()
		summary.UpdatedAt = summary.CreatedAt
		s := *summary
		s.KeyPoints = append(s.KeyPoints[:0:0], s.KeyPoints...)
		m.summaries[paper.ID] = s
		m.papers[i].SummarizationStatus = models.SummarizationCompleted
		return nil
	}
	return ErrNotFound
}

// ResetSummaries löscht alle Zusammenfassungen und setzt Papers mit Abstract auf pending.
func (m *Memory) ResetSummaries(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(len(m.summaries))
	m.summaries = make(map[uint]models.Summary)
	for i := range m.papers {
		if m.papers[i].HasAbstract() {
			m.papers[i].SummarizationStatus = models.SummarizationPending
		}
	}
	return deleted, nil
}

// CreateFetchLog hängt einen Abrufeintrag an.
func (m *Memory) CreateFetchLog(_ context.Context, l *models.SourceFetchLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	m.fetchLogs = append(m.fetchLogs, *l)
	return nil
}

// CreateJobRun legt einen JobRun an.
func (m *Memory) CreateJobRun(_ context.Context, run *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = m.id()
	run.CreatedAt = m.now()
	m.jobRuns = append(m.jobRuns, *run)
	return nil
}

// FinishJobRun schließt einen JobRun ab.
func (m *Memory) FinishJobRun(_ context.Context, run *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobRuns {
		if m.jobRuns[i].ID == run.ID {
			m.jobRuns[i] = *run
			return nil
		}
	}
	return ErrNotFound
}

// RecentJobRuns liefert die letzten JobRuns, neueste zuerst.
func (m *Memory) RecentJobRuns(_ context.Context, limit int) ([]models.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.JobRun, 0, len(m.jobRuns))
	for i := len(m.jobRuns) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.jobRuns[i])
	}
	return out, nil
}

func matchesFeed(p *models.Paper, q FeedQuery) bool {
	if len(q.Statuses) > 0 && !contains(q.Statuses, p.SummarizationStatus) {
		return false
	}
	if len(q.ResearchTypes) > 0 && (p.ResearchType == nil || !contains(q.ResearchTypes, *p.ResearchType)) {
		return false
	}
	if len(q.Sources) > 0 && !contains(q.Sources, p.Source) {
		return false
	}
	if q.From != nil && p.PublicationDate.Before(*q.From) {
		return false
	}
	if q.Before != nil && !p.PublicationDate.Before(*q.Before) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func sortPapers(papers []models.Paper, order string) {
	sort.SliceStable(papers, func(i, j int) bool {
		a, b := &papers[i], &papers[j]
		switch order {
		case SortDateAsc:
			if !a.PublicationDate.Equal(b.PublicationDate) {
				return a.PublicationDate.Before(b.PublicationDate)
			}
			return a.ID < b.ID
		case SortTitleAsc, SortTitleDesc:
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if order == SortTitleDesc {
				if ta != tb {
					return ta > tb
				}
				return a.ID > b.ID
			}
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		case SortSourceAsc:
			if a.Source != b.Source {
				return a.Source < b.Source
			}
		}
		if !a.PublicationDate.Equal(b.PublicationDate) {
			return a.PublicationDate.After(b.PublicationDate)
		}
		return a.ID > b.ID
	})
}

func (m *Memory) feed(q FeedQuery) []models.Paper {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Paper
	for i := range m.papers {
		if matchesFeed(&m.papers[i], q) {
			out = append(out, clonePaper(m.papers[i]))
		}
	}
	sortPapers(out, q.Sort)
	return out
}

// CountFeed zählt die Papers, die den Feed-Filtern entsprechen.
func (m *Memory) CountFeed(_ context.Context, q FeedQuery) (int64, error) {
	return int64(len(m.feed(q))), nil
}

// FeedPapers liefert die gefilterten, sortierten Papers.
func (m *Memory) FeedPapers(_ context.Context, q FeedQuery) ([]models.Paper, error) {
	papers := m.feed(q)
	if q.Offset >= len(papers) {
		return nil, nil
	}
	papers = papers[q.Offset:]
	if q.Limit > 0 && q.Limit < len(papers) {
		papers = papers[:q.Limit]
	}
	return papers, nil
}

// SummariesByPaperID lädt die Zusammenfassungen zu den angegebenen Papers.
func (m *Memory) SummariesByPaperID(_ context.Context, ids []uint) (map[uint]models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]models.Summary, len(ids))
	for _, id := range ids {
		if s, ok := m.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// PutPreferences legt Nutzereinstellungen an oder ersetzt sie.
func (m *Memory) PutPreferences(p models.UserPreference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = p
}

// UserPreferences lädt die Einstellungen eines Nutzers.
func (m *Memory) UserPreferences(_ context.Context, userID string) (*models.UserPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// WeeklySubscribers liefert alle Nutzer mit wöchentlicher Benachrichtigung, sortiert nach ID.
func (m *Memory) WeeklySubscribers(_ context.Context) ([]models.UserPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPreference
	for _, p := range m.prefs {
		if p.NotificationFrequency == models.NotifyWeekly && p.Email != "" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// MarkNotified setzt den Zeitpunkt der letzten Benachrichtigung.
func (m *Memory) MarkNotified(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return ErrNotFound
	}
	p.LastNotifiedAt = &at
	m.prefs[userID] = p
	return nil
}

// Papers liefert eine Kopie aller gespeicherten Papers.
func (m *Memory) Papers() []models.Paper {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Paper, len(m.papers))
	for i := range m.papers {
		out[i] = clonePaper(m.papers[i])
	}
	return out
}

// Summary liefert die Zusammenfassung eines Papers.
func (m *Memory) Summary(paperID uint) (models.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[paperID]
	return s, ok
}

// FetchLogs liefert alle Abrufeinträge.
func (m *Memory) FetchLogs() []models.SourceFetchLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SourceFetchLog(nil), m.fetchLogs...)
}

// JobRuns liefert alle JobRuns in Anlagereihenfolge.
func (m *Memory) JobRuns() []models.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.JobRun(nil), m.jobRuns...)
}
