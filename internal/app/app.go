package app

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/devZenta/SafeSend/internal/auth"
	"github.com/devZenta/SafeSend/internal/config"
	"github.com/devZenta/SafeSend/internal/email"
	"github.com/devZenta/SafeSend/internal/knock"
	"github.com/devZenta/SafeSend/internal/smtpserver"
	"github.com/devZenta/SafeSend/internal/store"
)

/* ------------------------------------------------------------------
   App struct — runtime container
-------------------------------------------------------------------*/

type App struct {
	cfg        config.Config
	log        *slog.Logger
	tokens     *store.Store
	sender     *email.OutboundService
	engine     *knock.Engine
	authSvc    *auth.Service
	smtpServer *smtp.Server
}

func New(log *slog.Logger) (*App, error) {
	a := &App{log: log}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

/* ------------------------------------------------------------------
   Public getters (required by api.App)
-------------------------------------------------------------------*/

func (a *App) Config() config.Config    { return a.cfg }
func (a *App) TokenStore() *store.Store { return a.tokens }
func (a *App) Knock() *knock.Engine     { return a.engine }
func (a *App) Auth() *auth.Service      { return a.authSvc }
func (a *App) Logger() *slog.Logger     { return a.log }

/* ------------------------------------------------------------------
   Init / Run / Close lifecycle
-------------------------------------------------------------------*/

func (a *App) Init() error {
	/* 1. configuration */
	c, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = c

	/* 2. token store */
	a.tokens, err = store.Open(c.DBDriver, c.DBDSN, a.log)
	if err != nil {
		return err
	}

	/* 3. outbound delivery + knock engine */
	a.sender = email.NewOutboundService(c, a.log)
	a.engine = knock.NewEngine(c.Domain, c.BaseURL, a.tokens, a.sender, a.log)
	a.authSvc = auth.NewService(c.JWTSecret, c.AdminPasswordHash)

	/* 4. SMTP server */
	a.initSMTP()
	return nil
}

func (a *App) Run() error {
	go func() {
		a.log.Info("SMTP listening", "addr", a.smtpServer.Addr)
		if err := a.smtpServer.ListenAndServe(); err != nil {
			a.log.Error("smtp listener failed", "err", err)
			os.Exit(1)
		}
	}()
	return nil
}

func (a *App) Close() error {
	_ = a.smtpServer.Close()
	return a.tokens.Close()
}

/* ------------------------------------------------------------------
   internal helpers
-------------------------------------------------------------------*/

func (a *App) initSMTP() {
	be := smtpserver.NewBackend(a.engine, a.log)
	s := smtp.NewServer(be)
	s.Addr = fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)
	s.Domain = a.cfg.Domain
	s.ReadTimeout, s.WriteTimeout = 10*time.Second, 10*time.Second
	s.MaxMessageBytes, s.MaxRecipients = 1<<20, 50
	s.AllowInsecureAuth = true

	if a.cfg.CertFile != "" && a.cfg.KeyFile != "" {
		if cert, err := tls.LoadX509KeyPair(a.cfg.CertFile, a.cfg.KeyFile); err == nil {
			s.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		} else {
			a.log.Warn("TLS disabled", "err", err)
		}
	}

	a.smtpServer = s
}
