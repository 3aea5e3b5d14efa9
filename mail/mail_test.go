package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Send(context.Background(), Message{
		To:          "customer@example.com",
		Subject:     "Invoice INV-2025-0001",
		Body:        "Please find attached.",
		Attachments: []Attachment{{Filename: "INV-2025-0001.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"customer@example.com", "INV-2025-0001.pdf", "Invoice INV-2025-0001"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output misses %q: %s", want, out)
		}
	}
}

func TestSend_RejectsBadRecipient(t *testing.T) {
	senders := map[string]Sender{
		"log":     NewLogSender(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		"mailjet": NewMailjetSender("key", "secret", "app@example.com", "app"),
	}
	for name, s := range senders {
		for _, to := range []string{"", "   ", "not an address"} {
			if err := s.Send(context.Background(), Message{To: to}); !errors.Is(err, ErrNoRecipient) {
				t.Errorf("%s to %q: err = %v", name, to, err)
			}
		}
	}
}

func TestMailjetMessage(t *testing.T) {
	s := NewMailjetSender("key", "secret", "app@example.com", "invoicedesk")
	info := s.message(Message{
		To:          "c@example.com",
		ReplyTo:     "vendor@example.com",
		Subject:     "Invoice",
		Body:        "Hello",
		Attachments: []Attachment{{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})
	if info.From.Email != "app@example.com" || (*info.To)[0].Email != "c@example.com" {
		t.Fatalf("from/to = %+v / %+v", info.From, info.To)
	}
	if info.ReplyTo == nil || info.ReplyTo.Email != "vendor@example.com" {
		t.Errorf("reply-to = %+v", info.ReplyTo)
	}
	if info.Attachments == nil || len(*info.Attachments) != 1 {
		t.Fatalf("attachments = %+v", info.Attachments)
	}
	att := (*info.Attachments)[0]
	if att.Filename != "a.pdf" || att.Base64Content != base64.StdEncoding.EncodeToString([]byte("pdf")) {
		t.Errorf("attachment = %+v", att)
	}

	plain := s.message(Message{To: "c@example.com"})
	if plain.ReplyTo != nil || plain.Attachments != nil {
		t.Error("empty reply-to or attachments set")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New("production", "k", "s", "a@example.com", nil).(*MailjetSender); !ok {
		t.Error("production should use mailjet")
	}
	if _, ok := New("development", "", "", "", nil).(*LogSender); !ok {
		t.Error("development should log")
	}
}
