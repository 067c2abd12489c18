package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/devZenta/SafeSend/internal/config"
	"github.com/devZenta/SafeSend/internal/models"
	"github.com/devZenta/SafeSend/internal/tag"
)

// OutboundService delivers gateway mail: challenge notices and invitations
// back to remote senders, plus relayed messages into the protected domain.
// Every delivery is a single best-effort attempt.
type OutboundService struct {
	cfg config.Config
	log *slog.Logger
}

// MXRecord represents a mail exchange record with its priority
type MXRecord struct {
	Host     string
	Priority uint16
}

// NewOutboundService creates a new outbound email service
func NewOutboundService(cfg config.Config, log *slog.Logger) *OutboundService {
	return &OutboundService{cfg: cfg, log: log}
}

// Send delivers one message. Recipients inside the protected domain go to
// the upstream mail host (the real mailbox store behind this gateway);
// everything else goes out via MX lookup.
func (s *OutboundService) Send(ctx context.Context, msg models.OutboundMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", fmt.Sprintf("<%s@%s>", uuid.New().String(), s.cfg.Domain))
	m.SetBody("text/plain", msg.Text)

	_, domain, err := tag.Split(msg.To)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", msg.To, err)
	}

	if strings.EqualFold(domain, s.cfg.Domain) {
		d := gomail.NewDialer(s.cfg.UpstreamHost, s.cfg.UpstreamPort, "", "")
		d.SSL = false
		d.Auth = nil
		if err := d.DialAndSend(m); err != nil {
			return fmt.Errorf("deliver to upstream %s:%d: %w",
				s.cfg.UpstreamHost, s.cfg.UpstreamPort, err)
		}
		return nil
	}

	return s.sendToExternalDomain(m, domain)
}

// sendToExternalDomain sends an email to an external domain using MX lookup
func (s *OutboundService) sendToExternalDomain(m *gomail.Message, domain string) error {
	mxRecords, err := lookupMXRecords(domain)
	if err != nil {
		return fmt.Errorf("lookup MX for %s: %w", domain, err)
	}

	// Try each MX server in order of priority
	var lastError error
	for _, mx := range mxRecords {
		d := gomail.NewDialer(strings.TrimSuffix(mx.Host, "."), 25, "", "")
		d.SSL = false
		d.Auth = nil

		err := d.DialAndSend(m)
		if err == nil {
			return nil
		}
		s.log.Warn("MX delivery attempt failed", "host", mx.Host, "err", err)
		lastError = err
	}

	if lastError != nil {
		return fmt.Errorf("deliver to %s: %w", domain, lastError)
	}
	return fmt.Errorf("deliver to %s: no MX records", domain)
}

// lookupMXRecords finds and sorts MX records for a domain
func lookupMXRecords(domain string) ([]MXRecord, error) {
	mxs, err := net.LookupMX(domain)
	if err != nil {
		return nil, err
	}

	records := make([]MXRecord, len(mxs))
	for i, mx := range mxs {
		records[i] = MXRecord{Host: mx.Host, Priority: mx.Pref}
	}

	// Sort by priority (lower value = higher priority)
	sort.Slice(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})

	return records, nil
}
