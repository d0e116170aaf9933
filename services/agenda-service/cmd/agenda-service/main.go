package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/dentanova/libs/config"
	"github.com/md-rashed-zaman/dentanova/libs/httpx"
	"github.com/md-rashed-zaman/dentanova/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dentanova/libs/otel"
	"github.com/md-rashed-zaman/dentanova/libs/runtime"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/editor"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/handlers"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/sessions"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "agenda-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	repo := storage.NewAppointmentRepository()
	registry := sessions.NewRegistry(func() *editor.Editor { return editor.New(repo) })
	sweeper := sessions.NewSweeper(registry,
		config.Duration("EDITOR_SESSION_IDLE", 30*time.Minute),
		config.String("EDITOR_SWEEP_CRON", "@every 1m"),
		logger,
	)
	sweeper.Start()
	defer sweeper.Stop()

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewPublisher(logger, events.PublisherConfig{
		Brokers:   brokers,
		QueueSize: config.Int("EVENT_QUEUE_SIZE", 256),
	})
	go publisher.Run(ctx)

	agendaHandler := handlers.NewAgendaHandler(repo, registry, editor.New(repo), publisher, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	agendaHandler.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, srv, logger, 10*time.Second)
}
