package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/export"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/insights"
	applog "expensetracker/internal/log"
	"expensetracker/internal/ocr"
	"expensetracker/internal/services"
	"expensetracker/internal/voice"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.SlogLevel())

	if err := run(logger, cfg); err != nil {
		logger.Error("Expense tracker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Expense tracker stopped gracefully")
}

func run(logger *applog.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// Event fan-out and remote transcripts are optional.
	var (
		amqpClient *amqp.Client
		publisher  services.EventPublisher
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPTranscriptQueue)
		if err != nil {
			return fmt.Errorf("init amqp client: %w", err)
		}
		amqpClient, publisher = c, c
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svcCfg := services.DefaultConfig()
	svcCfg.Limits = cfg.Limits()
	svcCfg.OCRTimeout = cfg.OCRTimeout
	svc := services.NewExpenseService(svcCfg, ocr.NewTesseract(cfg.OCRCommand), publisher)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close expense service", "error", err)
		}
	}()

	expCfg, err := export.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	exp, err := export.NewFactory(logger.WithComponent(applog.ComponentExport).Logger).Create(ctx, expCfg)
	if err != nil {
		return fmt.Errorf("init exporter: %w", err)
	}
	if exp.Cleanup != nil {
		defer func() {
			if err := exp.Cleanup(); err != nil {
				logger.Error("Exporter cleanup failed", "error", err)
			}
		}()
	}

	janitor := cache.NewJanitor()
	var insightsProvider apphttp.InsightsProvider
	if cfg.InsightsEnabled {
		gen, err := insights.NewGenAI(ctx, cfg.InsightsAPIKey)
		if err != nil {
			return fmt.Errorf("init insights: %w", err)
		}
		insightsSvc := insights.NewService(gen, insights.Config{
			Model:    cfg.InsightsModel,
			Timeout:  cfg.InsightsTimeout,
			CacheTTL: cfg.InsightsCacheTTL,
		})
		if c := insightsSvc.Cache(); c != nil {
			janitor.Register(c)
		}
		insightsProvider = insightsSvc
		logger.Info("Insights enabled", "model", cfg.InsightsModel)
	}

	queue := voice.NewQueue(cfg.VoiceQueueSize)
	voiceLogger := logger.WithComponent(applog.ComponentVoice)
	drainer := voice.NewDrainer(queue, func(ctx context.Context, transcript string) error {
		out, err := svc.Execute(ctx, transcript)
		if err != nil {
			return err
		}
		voiceLogger.InfoContext(ctx, "Voice command handled",
			applog.FieldOperation, applog.OpDispatch,
			"intent", fmt.Sprintf("%T", out.Intent),
			"view", out.View,
			"message", out.Message)
		return nil
	}, cfg.VoiceDrainInterval)

	recognizer, err := cli.OpenVoiceSource(cfg.VoiceSource)
	if err != nil {
		return err
	}
	var listener *voice.Listener
	if recognizer != nil {
		lcfg := voice.DefaultListenerConfig()
		lcfg.ListenTimeout = cfg.VoiceListenTimeout
		listener = voice.NewListener(recognizer, queue, lcfg)
	}

	g, gctx := errgroup.WithContext(ctx)

	var voiceControl apphttp.VoiceControl
	if listener != nil {
		voiceControl = voice.NewToggle(gctx, listener)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Insights: insightsProvider,
		Exporter: exp.Exporter,
		Voice:    voiceControl,
		Logger:   logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	// The drainer outlives the signal so Stop can flush what is queued.
	if err := drainer.Start(context.WithoutCancel(gctx)); err != nil {
		return err
	}
	if voiceControl != nil {
		if err := voiceControl.StartListening(gctx); err != nil {
			return err
		}
	}
	janitor.Start(gctx, cfg.InsightsCacheTTL)

	g.Go(func() error {
		logger.Info("Starting expense tracker",
			"port", cfg.Port,
			"export_backend", cfg.ExportBackend,
			"voice_source", cfg.VoiceSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if amqpClient != nil && cfg.AMQPTranscriptQueue != "" {
		g.Go(func() error {
			err := amqpClient.ConsumeTranscripts(gctx, func(ctx context.Context, msg *amqp.TranscriptMessage) error {
				if err := queue.Push(msg.Transcript); err != nil {
					if errors.Is(err, voice.ErrQueueFull) {
						// Requeueing would spin while the queue is full.
						voiceLogger.WarnContext(ctx, "Dropped remote transcript", "source", msg.Source)
						return nil
					}
					return err
				}
				return nil
			})
			// Consumer failures are logged; the process keeps serving.
			if err != nil && !errors.Is(err, context.Canceled) {
				voiceLogger.Error("Transcript consumer stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if listener != nil {
			if err := listener.Close(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("close listener: %w", err))
			}
		}
		if err := drainer.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop drainer: %w", err))
		}
		janitor.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if n := queue.Dropped(); n > 0 {
			voiceLogger.Warn("Transcripts dropped while the queue was full", "count", n)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
