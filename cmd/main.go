package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"

	"chathub/auth"
	"chathub/infrastructure/rest"
	"chathub/infrastructure/ws"
	"chathub/internal"
	"chathub/moderation"
	"chathub/observability"
	"chathub/repositories"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/search"
	"chathub/services"
	"chathub/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB) & Search (Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Repositories & domain services
	userRepo := repositories.NewUserRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	messageRepo := repositories.NewMessageRepository(db, log)
	index := search.NewMessageIndex(writer, log)

	var moderator *moderation.Moderator
	if config.CensoredWordlist != "" {
		words, err := moderation.LoadWordlist(config.CensoredWordlist)
		if err != nil {
			return fmt.Errorf("wordlist loading failed: %w", err)
		}
		char, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		if moderator, err = moderation.NewModerator(words, char); err != nil {
			return fmt.Errorf("moderator setup failed: %w", err)
		}
	}

	registry := runtime.NewRegistry()
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	envelopes := make(chan workers.Envelope, config.BufferSize)
	fanout := workers.NewEventFanout(log, envelopes, registry)
	fanout.Add(sink.NewTelemetrySink(metrics))

	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AccessTokenTTL, config.RefreshTokenTTL)
	gatekeeper := auth.NewGatekeeper(issuer, userRepo)
	authService := services.NewAuthService(log, userRepo, issuer)
	chatService := services.NewChatService(log, chatRepo, userRepo)
	messageService := services.NewMessageService(
		log, messageRepo, chatRepo, userRepo, index, moderator,
		envelopes, metrics, config.MaxContentLength,
	)
	presence := services.NewPresenceTracker(log, userRepo, registry, envelopes)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(fanout)
	go sup.Run(ctx)

	// 6. HTTP server: REST API + websocket gateway
	gateway := ws.NewGateway(
		log, gatekeeper, presence, messageService, chatService,
		registry, envelopes, metrics,
		ws.Options{
			EventBuffer:     config.ConnectionBufferSize,
			FramesPerSecond: config.FramesPerSecond,
			FrameBurst:      config.FrameBurst,
		},
	)
	router := rest.NewRouter(rest.RouterDeps{
		Log:        log,
		Gatekeeper: gatekeeper,
		Auth:       authService,
		Chats:      chatService,
		Messages:   messageService,
		WS:         gateway.Handler(),
		Gatherer:   prometheus.DefaultGatherer,
		AccessTTL:  config.AccessTokenTTL,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
