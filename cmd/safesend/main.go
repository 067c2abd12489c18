package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/devZenta/SafeSend/internal/api"
	"github.com/devZenta/SafeSend/internal/app"
)

func main() {
	cfgFile := flag.String("config", "", "Path to config file")
	flag.Parse()
	if *cfgFile != "" {
		viper.SetConfigFile(*cfgFile)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	/* ---------- core ---------- */
	a, err := app.New(logger)
	if err != nil {
		logger.Error("init failed", "err", err)
		os.Exit(1)
	}
	if err := a.Run(); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}

	/* ---------- HTTP layer ---------- */
	router := api.SetupRouter(a)
	addr := fmt.Sprintf("%s:%d", a.Config().WebHost, a.Config().WebPort)
	go func() {
		logger.Info("HTTP listening", "addr", addr)
		if err := router.Run(addr); err != nil {
			logger.Error("http listener failed", "err", err)
			os.Exit(1)
		}
	}()

	/* ---------- wait for shutdown ---------- */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := a.Close(); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
