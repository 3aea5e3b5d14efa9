// Package mail delivers emails. Production sends through Mailjet, every
// other mode only logs the message.
package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/mailjet/mailjet-apiv3-go"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned for messages without a valid To address.
var ErrNoRecipient = errors.New("mail: no valid recipient")

func checkRecipient(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: %s", ErrNoRecipient, msg.To)
	}
	return nil
}

// New returns the sender for mode: Mailjet in production, a LogSender
// otherwise.
func New(mode, apiKey, secret, from string, logger *slog.Logger) Sender {
	if mode == "production" {
		return NewMailjetSender(apiKey, secret, from, "invoicedesk")
	}
	return NewLogSender(logger)
}

// MailjetSender sends with the Mailjet v3.1 send API.
type MailjetSender struct {
	client *mailjet.Client
	from   mailjet.RecipientV31
}

// NewMailjetSender creates a sender with the given credentials and from
// address.
func NewMailjetSender(apiKey, secret, fromEmail, fromName string) *MailjetSender {
	return &MailjetSender{
		client: mailjet.NewMailjetClient(apiKey, secret),
		from:   mailjet.RecipientV31{Email: fromEmail, Name: fromName},
	}
}

func (s *MailjetSender) message(msg Message) mailjet.InfoMessagesV31 {
	from := s.from
	info := mailjet.InfoMessagesV31{
		From: &from,
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: msg.To},
		},
		Subject:  msg.Subject,
		TextPart: msg.Body,
	}
	if msg.ReplyTo != "" {
		info.ReplyTo = &mailjet.RecipientV31{Email: msg.ReplyTo}
	}
	if len(msg.Attachments) > 0 {
		atts := make(mailjet.AttachmentsV31, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			atts = append(atts, mailjet.AttachmentV31{
				ContentType:   a.ContentType,
				Filename:      a.Filename,
				Base64Content: base64.StdEncoding.EncodeToString(a.Data),
			})
		}
		info.Attachments = &atts
	}
	return info
}

// Send delivers msg. The Mailjet client has no context support; ctx is only
// checked before the call.
func (s *MailjetSender) Send(ctx context.Context, msg Message) error {
	if err := checkRecipient(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{s.message(msg)}}
	if _, err := s.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("mailjet send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender logging to logger (slog.Default if nil).
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := checkRecipient(msg); err != nil {
		return err
	}
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	s.logger.InfoContext(ctx, "mail not sent (development)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
		"attachments", names,
	)
	return nil
}
