package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
	"github.com/LeThienKhiem/pdf-converter/content"
	"github.com/LeThienKhiem/pdf-converter/internal/config"
	"github.com/LeThienKhiem/pdf-converter/observer"
	"github.com/LeThienKhiem/pdf-converter/provider/gemini"
	"github.com/LeThienKhiem/pdf-converter/server"
	"github.com/LeThienKhiem/pdf-converter/sheets"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Load and validate config
	cfg := config.Load(os.Getenv("PDF_CONVERTER_CONFIG"))
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Observability (opt-in)
	var inst *observer.Instruments
	var gw pdfconverter.Gateway = gemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model, gemini.WithLogger(logger))
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			logger.Error("observer init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
		gw = observer.WrapGateway(gw, cfg.Gemini.Model, inst)
	}

	// 3. Pipeline
	var ext server.Extractor = pdfconverter.NewExtractor(gw, pdfconverter.WithLogger(logger))
	if inst != nil {
		ext = observer.WrapExtractor(ext, inst)
	}

	// 4. Publisher factory: a header-supplied refresh token overrides the
	// configured one for that request.
	var newPublisher server.PublisherFactory
	if cfg.PublishEnabled() {
		newPublisher = func(refreshToken string) server.Publisher {
			if refreshToken == "" {
				refreshToken = cfg.Google.RefreshToken
			}
			p := sheets.New(cfg.Google.ClientID, cfg.Google.ClientSecret, refreshToken,
				sheets.WithLogger(logger))
			if inst != nil {
				return observer.WrapPublisher(p, inst)
			}
			return p
		}
	}

	// 5. Content store (optional)
	var store server.ContentStore
	if cfg.Content.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Content.DatabaseURL)
		if err != nil {
			logger.Error("content database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = content.New(pool)
	}

	// 6. HTTP server
	srv := server.New(server.Config{
		Logger:       logger,
		Extractor:    ext,
		NewPublisher: newPublisher,
		Content:      store,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	logger.Info("listening", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}
