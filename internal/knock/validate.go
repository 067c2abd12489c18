package knock

import (
	"context"
	"errors"
	"fmt"

	"github.com/devZenta/SafeSend/internal/models"
	"github.com/devZenta/SafeSend/internal/tag"
)

// ErrUnknownToken is returned by Validate when no record exists for the
// token. Nothing is mutated and no mail is sent in that case.
var ErrUnknownToken = errors.New("unknown token")

// Validate turns a pending knock into an approved relay permission and
// mails the requester the relay address they should use from now on.
//
// from becomes the authorized pattern; when empty the pattern already
// stored at knock time is kept. to is the owner's bare address the relay
// address is built from.
func (e *Engine) Validate(ctx context.Context, token, from, to string) error {
	rec, ok := e.store.Get(ctx, token)
	if !ok {
		return ErrUnknownToken
	}

	pattern := from
	if pattern == "" {
		pattern = rec.Pattern
	}

	relayAddr, err := tag.Compose(to, token)
	if err != nil {
		return fmt.Errorf("compose relay address: %w", err)
	}

	rec = models.Record{
		Token:   token,
		Pattern: pattern,
		Status:  models.StatusValidated,
	}
	if err := e.store.Set(ctx, token, rec); err != nil {
		return fmt.Errorf("validate knock: %w", err)
	}

	body := fmt.Sprintf(
		"Your request to reach %s was approved.\n\n"+
			"Send future mail to:\n\n    %s\n\n"+
			"Only mail sent from %s to that address will be relayed.",
		to, relayAddr, pattern)

	err = e.sender.Send(ctx, models.OutboundMessage{
		From:    to,
		To:      pattern,
		Subject: "You have been approved",
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("send validation confirmation: %w", err)
	}

	e.log.Info("validated knock", "pattern", pattern)
	return nil
}
