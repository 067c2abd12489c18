package smtpserver

import (
	"context"
	"io"
	"log/slog"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/devZenta/SafeSend/internal/knock"
	"github.com/devZenta/SafeSend/internal/mailparse"
)

// Session is one inbound SMTP transaction. The envelope stage only
// records addresses; all filtering happens at the data stage once the
// message recipient is known (the relay tag lives in the To header).
type Session struct {
	engine Decider
	log    *slog.Logger

	from string
	to   []string
}

func NewSession(e Decider, log *slog.Logger) *Session {
	return &Session{engine: e, log: log}
}

func (s *Session) AuthPlain(username, password string) error {
	return smtp.ErrAuthUnsupported
}

/* ======================  ENVELOPE  =============================== */

func (s *Session) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *Session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

/* ======================  DATA  =================================== */

var (
	rejectMalformed = &smtp.SMTPError{
		Code:         554,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "malformed message",
	}
	rejectTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "temporary processing failure",
	}
)

func (s *Session) Data(r io.Reader) error {
	msg, err := mailparse.Parse(r)
	if err != nil {
		s.log.Error("message parse failed", "envelope_from", s.from, "err", err)
		return rejectMalformed
	}
	msg.ID = uuid.New().String()

	out, err := s.engine.Decide(context.Background(), msg)

	// Challenge and IssueKnock verdicts stand even when the notice mail
	// fails; the error is reported, not turned into a rejection.
	if err != nil {
		switch out.Verdict {
		case knock.VerdictChallenge, knock.VerdictIssueKnock:
			s.log.Error("notice delivery failed", "msg", msg.ID,
				"verdict", out.Verdict.String(), "err", err)
			return nil
		default:
			s.log.Error("decision failed", "msg", msg.ID, "err", err)
			return rejectTemporary
		}
	}

	if out.Verdict == knock.VerdictReject {
		s.log.Info("rejected message", "msg", msg.ID,
			"from", msg.From, "to", msg.To, "reason", out.Reason)
		return &smtp.SMTPError{
			Code:         553,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      out.Reason,
		}
	}

	s.log.Info("accepted message", "msg", msg.ID, "verdict", out.Verdict.String())
	return nil
}

/* ======================  SESSION CLEANUP  ======================= */

func (s *Session) Reset() {
	s.from, s.to = "", nil
}

func (s *Session) Logout() error { return nil }
