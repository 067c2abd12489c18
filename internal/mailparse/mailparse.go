// Package mailparse turns a raw DATA stream into the handful of fields
// the gateway acts on. Anything it cannot make sense of is a hard
// per-message error; the session maps it to a rejection.
package mailparse

import (
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"

	"github.com/devZenta/SafeSend/internal/models"
	"github.com/devZenta/SafeSend/internal/tag"
)

// Parse reads one raw message and extracts from/to/subject/text plus the
// recipient-derived fields (domain, plus-tag).
func Parse(r io.Reader) (models.ParsedMessage, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return models.ParsedMessage{}, fmt.Errorf("read message: %w", err)
	}

	from, err := address(m.Header.Get("From"))
	if err != nil {
		return models.ParsedMessage{}, fmt.Errorf("parse From: %w", err)
	}
	to, err := address(m.Header.Get("To"))
	if err != nil {
		return models.ParsedMessage{}, fmt.Errorf("parse To: %w", err)
	}

	body, err := io.ReadAll(m.Body)
	if err != nil {
		return models.ParsedMessage{}, fmt.Errorf("read body: %w", err)
	}

	msg := models.ParsedMessage{
		From:    from,
		To:      to,
		Subject: subject(m.Header.Get("Subject")),
		Text:    string(body),
	}

	local, domain, err := tag.Split(to)
	if err != nil {
		return models.ParsedMessage{}, fmt.Errorf("recipient %q: %w", to, err)
	}
	msg.RecipientDomain = domain
	msg.RecipientTag, msg.Tagged = tag.Extract(local)
	return msg, nil
}

func address(header string) (string, error) {
	a, err := mail.ParseAddress(strings.TrimSpace(header))
	if err != nil {
		return "", err
	}
	return a.Address, nil
}

func subject(raw string) string {
	dec := new(mime.WordDecoder)
	s, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return s
}
