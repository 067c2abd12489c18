// Package knock implements the challenge/response state machine that
// decides what happens to each inbound message: challenge an untagged
// sender, open a knock, relay on a validated token, or reject.
package knock

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/devZenta/SafeSend/internal/models"
	"github.com/devZenta/SafeSend/internal/tag"
)

// Store is the slice of the token store the engine needs.
type Store interface {
	Get(ctx context.Context, token string) (models.Record, bool)
	Set(ctx context.Context, token string, rec models.Record) error
}

// Sender delivers one outbound message, best effort.
type Sender interface {
	Send(ctx context.Context, msg models.OutboundMessage) error
}

type Verdict int

const (
	VerdictReject Verdict = iota
	VerdictChallenge
	VerdictIssueKnock
	VerdictRelay
)

func (v Verdict) String() string {
	switch v {
	case VerdictChallenge:
		return "challenge"
	case VerdictIssueKnock:
		return "issue-knock"
	case VerdictRelay:
		return "relay"
	default:
		return "reject"
	}
}

// Outcome is the engine's decision for one message. Reason is set on
// rejects; Token is set when a knock was issued.
type Outcome struct {
	Verdict Verdict
	Reason  string
	Token   string
}

// knockTag is the reserved tag that opens a knock instead of naming a token.
const knockTag = "knock"

type Engine struct {
	domain  string // the protected relay domain
	baseURL string // prefix for validation links
	store   Store
	sender  Sender
	token   func(n int) (string, error)
	log     *slog.Logger
}

func NewEngine(domain, baseURL string, store Store, sender Sender, log *slog.Logger) *Engine {
	return &Engine{
		domain:  domain,
		baseURL: baseURL,
		store:   store,
		sender:  sender,
		token:   RandomToken,
		log:     log,
	}
}

// Decide runs the authorization table for one parsed message.
//
// A non-nil error alongside a Challenge or IssueKnock outcome means the
// decision stands but the notice mail could not be sent; the caller logs
// it and still accepts the session. Any other error is fatal to the
// operation in progress.
func (e *Engine) Decide(ctx context.Context, msg models.ParsedMessage) (Outcome, error) {
	if msg.RecipientDomain != e.domain {
		return Outcome{Verdict: VerdictReject, Reason: "relay denied"}, nil
	}

	if !msg.Tagged {
		return e.challenge(ctx, msg)
	}

	if msg.RecipientTag == knockTag {
		return e.issueKnock(ctx, msg)
	}

	rec, ok := e.store.Get(ctx, msg.RecipientTag)
	if !ok {
		return Outcome{Verdict: VerdictReject, Reason: "invalid token"}, nil
	}
	if rec.Status != models.StatusValidated {
		return Outcome{Verdict: VerdictReject, Reason: "token not validated"}, nil
	}
	if rec.Pattern != msg.From {
		return Outcome{Verdict: VerdictReject, Reason: "pattern mismatch"}, nil
	}
	return e.relay(ctx, msg)
}

/* ======================  CHALLENGE  ============================== */

func (e *Engine) challenge(ctx context.Context, msg models.ParsedMessage) (Outcome, error) {
	out := Outcome{Verdict: VerdictChallenge}

	knockAddr, err := tag.Compose(msg.To, knockTag)
	if err != nil {
		return Outcome{}, fmt.Errorf("compose challenge address: %w", err)
	}

	body := fmt.Sprintf(
		"Your message to %s was not delivered.\n\n"+
			"This mailbox only accepts mail from approved senders. To ask for\n"+
			"approval, send a message to:\n\n    %s\n\n"+
			"You will receive a relay address once the owner approves you.\n\n"+
			"Original subject: %s\n\n%s",
		msg.To, knockAddr, msg.Subject, msg.Text)

	err = e.sender.Send(ctx, models.OutboundMessage{
		From:    msg.To,
		To:      msg.From,
		Subject: "Approval required: " + msg.Subject,
		Text:    body,
	})
	if err != nil {
		return out, fmt.Errorf("send challenge notice: %w", err)
	}

	e.log.Info("challenged unknown sender", "msg", msg.ID, "from", msg.From)
	return out, nil
}

/* ======================  ISSUE KNOCK  ============================ */

func (e *Engine) issueKnock(ctx context.Context, msg models.ParsedMessage) (Outcome, error) {
	token, err := e.token(TokenBytes)
	if err != nil {
		return Outcome{}, fmt.Errorf("generate token: %w", err)
	}

	rec := models.Record{
		Token:   token,
		Pattern: msg.From,
		Status:  models.StatusRequested,
	}
	if err := e.store.Set(ctx, token, rec); err != nil {
		return Outcome{}, fmt.Errorf("store knock: %w", err)
	}

	out := Outcome{Verdict: VerdictIssueKnock, Token: token}

	link := fmt.Sprintf("%s/knock/%s/validation?%s",
		e.baseURL, token, url.Values{
			"from": {msg.From},
			"to":   {msg.To},
		}.Encode())

	body := fmt.Sprintf(
		"%s is asking for permission to send you mail.\n\n"+
			"To approve this sender, open:\n\n    %s\n\n"+
			"They will be given a dedicated relay address; mail from anyone\n"+
			"else using that address is rejected.\n\n"+
			"Original subject: %s\n\n%s",
		msg.From, link, msg.Subject, msg.Text)

	err = e.sender.Send(ctx, models.OutboundMessage{
		From:    msg.From,
		To:      msg.To,
		Subject: "Knock from " + msg.From,
		Text:    body,
	})
	if err != nil {
		return out, fmt.Errorf("send knock invitation: %w", err)
	}

	e.log.Info("issued knock", "msg", msg.ID, "from", msg.From)
	return out, nil
}

/* ======================  RELAY  ================================== */

func (e *Engine) relay(ctx context.Context, msg models.ParsedMessage) (Outcome, error) {
	// forwarded exactly as received, tagged recipient included
	err := e.sender.Send(ctx, models.OutboundMessage{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		return Outcome{Verdict: VerdictRelay}, fmt.Errorf("relay message: %w", err)
	}

	e.log.Info("relayed message", "msg", msg.ID, "from", msg.From, "to", msg.To)
	return Outcome{Verdict: VerdictRelay}, nil
}
