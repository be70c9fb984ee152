package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/notify"
)

const (
	digestPageSize  = 10
	digestLookback  = 7 * 24 * time.Hour
	digestSubjectFm = "Weekly Neurology Update: %d New Papers"
)

var digestTmpl = template.Must(template.New("digest").Parse(`<h1>Weekly Research Update</h1>
<ul>
{{- range .}}
<li><a href="{{.Link}}">{{.Title}}</a> ({{.Source}})<br><small>{{.Reference}}</small></li>
{{- end}}
</ul>
<p>Login to view summaries.</p>`))

type digestItem struct {
	Title     string
	Source    string
	Link      string
	Reference string
}

// NotificationService verschickt den wöchentlichen Überblick neuer Papers.
type NotificationService struct {
	Feed        *FeedEngine
	Preferences PreferencesProvider
	Dispatcher  notify.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewNotificationService erstellt den Service.
func NewNotificationService(feed *FeedEngine, prefs PreferencesProvider, d notify.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{Feed: feed, Preferences: prefs, Dispatcher: d, Logger: logger, Now: time.Now}
}

// RunWeekly benachrichtigt alle Nutzer mit wöchentlicher Frequenz. Fehler
// einzelner Nutzer werden geloggt. Zurückgegeben wird die Zahl versandter Mails.
func (n *NotificationService) RunWeekly(ctx context.Context) (int, error) {
	users, err := n.Preferences.WeeklySubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("abonnenten laden: %w", err)
	}
	n.Logger.Info("Nutzer für wöchentliche Benachrichtigung gefunden.", zap.Int("count", len(users)))

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := n.notifyUser(ctx, u)
		if ok {
			sent++
		}
		if err != nil {
			n.Logger.Error("Benachrichtigung fehlgeschlagen.", zap.String("user_id", u.UserID), zap.Error(err))
		}
	}
	return sent, nil
}

func (n *NotificationService) notifyUser(ctx context.Context, u models.UserPreference) (bool, error) {
	log := n.Logger.With(zap.String("user_id", u.UserID))
	since := n.Now().Add(-digestLookback)
	if u.LastNotifiedAt != nil {
		since = *u.LastNotifiedAt
	}

	page, err := n.Feed.GetFeed(ctx, u.UserID, FeedRequest{Page: 1, PageSize: digestPageSize, Sort: "date"})
	if err != nil {
		return false, err
	}

	var items []digestItem
	for _, p := range page.Papers {
		if !p.PublicationDate.After(since) {
			continue
		}
		items = append(items, digestItem{Title: p.Title, Source: p.Source, Link: digestLink(&p), Reference: FormatReference(&p)})
	}
	if len(items) == 0 {
		log.Info("Keine neuen Papers für Nutzer.")
		return false, nil
	}

	var body strings.Builder
	if err := digestTmpl.Execute(&body, items); err != nil {
		return false, fmt.Errorf("mail rendern: %w", err)
	}
	msg := notify.Message{
		To:      u.Email,
		Subject: fmt.Sprintf(digestSubjectFm, len(items)),
		HTML:    body.String(),
	}
	if err := n.Dispatcher.Send(ctx, msg); err != nil {
		return false, err
	}
	log.Info("Wöchentliche Übersicht versendet.", zap.Int("papers", len(items)))

	if err := n.Preferences.MarkNotified(ctx, u.UserID, n.Now()); err != nil {
		return true, fmt.Errorf("benachrichtigungszeitpunkt speichern: %w", err)
	}
	return true, nil
}

// digestLink bevorzugt den freien Volltext, dann den Quell-Link, dann PubMed.
func digestLink(p *models.Paper) string {
	switch {
	case p.OpenAccessURL != "":
		return p.OpenAccessURL
	case p.Link != "":
		return p.Link
	case p.ExternalID != nil:
		return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", *p.ExternalID)
	}
	return ""
}
