package notify

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

func TestNewPicksDispatcher(t *testing.T) {
	t.Parallel()

	if _, ok := New(&config.Config{}, zap.NewNop()).(*LogDispatcher); !ok {
		t.Fatal("expected LogDispatcher without SMTP host")
	}
	cfg := &config.Config{SMTPHost: "smtp.example.org", SMTPPort: 587, MailFrom: "a@b"}
	if _, ok := New(cfg, zap.NewNop()).(*SMTPDispatcher); !ok {
		t.Fatal("expected SMTPDispatcher with SMTP host")
	}
}

func TestLogDispatcherTruncatesBody(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))
	msg := Message{To: "dr@example.org", Subject: "Hi", HTML: strings.Repeat("x", 2*previewLen)}
	if err := d.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	preview := entries[0].ContextMap()["body_preview"].(string)
	if len(preview) != previewLen+3 {
		t.Fatalf("preview length = %d", len(preview))
	}
}

func TestSMTPDispatcherRequiresRecipient(t *testing.T) {
	t.Parallel()

	d := NewSMTPDispatcher(&config.Config{SMTPHost: "smtp.example.org", SMTPPort: 587})
	if err := d.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("expected error without recipient")
	}
}
