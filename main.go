package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathakanu/remindme/internal/bot"
	"github.com/pathakanu/remindme/internal/config"
	"github.com/pathakanu/remindme/internal/logging"
	myopenai "github.com/pathakanu/remindme/internal/openai"
	"github.com/pathakanu/remindme/internal/scheduler"
	"github.com/pathakanu/remindme/internal/store"
	"github.com/pathakanu/remindme/internal/twilio"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "console")
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminders, err := store.Open(ctx, store.Config{
		Driver:              cfg.StoreDriver,
		DatabaseURL:         cfg.DatabaseURL,
		SQLitePath:          cfg.SQLitePath,
		FirebaseConfig:      cfg.FirebaseConfig,
		FirestoreCollection: cfg.FirestoreCollection,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store init failed")
	}

	logger.Info().Str("from", cfg.TwilioWhatsAppNumber).Msg("twilio sender configured")
	twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, twilio.Options{
		RatePerSec: cfg.SendRatePerSec,
		Timeout:    cfg.SendTimeout,
	}, logger)

	loc := cfg.LocalTimezone
	botOpts := []bot.Option{bot.WithLocation(loc)}
	if openAIClient := myopenai.New(cfg.OpenAIAPIKey); openAIClient.Enabled() {
		botOpts = append(botOpts, bot.WithSummarizer(openAIClient))
	}
	if cfg.TwilioValidateSignature {
		botOpts = append(botOpts, bot.WithValidator(twilio.NewValidator(cfg.TwilioAuthToken, cfg.WebhookPublicURL)))
	}
	reminderBot := bot.New(reminders, logger, botOpts...)

	sched := scheduler.New(reminders, twilioClient, logger,
		scheduler.WithInterval(cfg.PollInterval),
		scheduler.WithSendTimeout(cfg.SendTimeout),
		scheduler.WithClock(func() time.Time { return time.Now().In(loc) }),
	)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start")
	}

	mux := http.NewServeMux()
	mux.Handle("/twilio/webhook", reminderBot.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(server, sched, reminders, logger)
}

func shutdown(server *http.Server, sched *scheduler.Scheduler, reminders store.Store, logger zerolog.Logger) {
	logger.Info().Msg("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown error")
	}
	sched.Stop()
	if err := reminders.Close(); err != nil {
		logger.Warn().Err(err).Msg("store close error")
	}
}
