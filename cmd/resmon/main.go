package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/resmon/internal/config"
	"codeberg.org/mutker/resmon/internal/journal"
	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/metrics"
	"codeberg.org/mutker/resmon/internal/monitor"
	"codeberg.org/mutker/resmon/internal/pid"
	"codeberg.org/mutker/resmon/internal/server"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		logger.SetLogLevel(logLevel(cfg.LogLevel))
	}
	logger.Debug().Msg("Config loaded")
}

func logLevel(level string) logger.LogLevel {
	switch config.LogLevel(level) {
	case config.LogLevelDebug:
		return logger.DebugLevel
	case config.LogLevelInfo:
		return logger.InfoLevel
	case config.LogLevelError:
		return logger.ErrorLevel
	default:
		return logger.WarnLevel
	}
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}

	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	source := metrics.NewSource()
	if closer, ok := source.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close metrics source")
			}
		}()
	}

	mon, err := monitor.New(monitor.Config{
		Interval:  time.Duration(cfg.Interval * float64(time.Second)),
		KeepCount: cfg.KeepCount,
		GPUIndex:  cfg.GPUIndex,
	}, source)
	if err != nil {
		return err
	}

	recorder, err := journal.NewService(journal.Config{
		Enabled: cfg.Journal,
		DBPath:  cfg.JournalDB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close journal")
		}
	}()

	journalSub := mon.Publisher().Subscribe()
	go journal.Consume(ctx, recorder, journalSub)

	mon.Start()
	defer func() {
		if err := mon.Stop(); err != nil {
			logger.Error().Err(err).Msg("failed to stop monitor")
		}
	}()

	return server.New(cfg.Listen, mon).Run(ctx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
