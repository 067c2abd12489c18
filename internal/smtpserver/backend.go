package smtpserver

import (
	"context"
	"log/slog"

	"github.com/emersion/go-smtp"

	"github.com/devZenta/SafeSend/internal/knock"
	"github.com/devZenta/SafeSend/internal/models"
)

// Decider is the slice of the knock engine a session needs.
type Decider interface {
	Decide(ctx context.Context, msg models.ParsedMessage) (knock.Outcome, error)
}

type Backend struct {
	engine Decider
	log    *slog.Logger
}

func NewBackend(e Decider, log *slog.Logger) *Backend {
	return &Backend{engine: e, log: log}
}

func (b *Backend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return NewSession(b.engine, b.log), nil
}
