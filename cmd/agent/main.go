package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"pair-maker-go/config"
	"pair-maker-go/gateway"
	"pair-maker-go/infrastructure/alert"
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/internal/engine"
	"pair-maker-go/internal/store"
	"pair-maker-go/market"
	"pair-maker-go/metrics"
	"pair-maker-go/sim"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgPath := flag.String("config", "configs/agent.yaml", "配置文件路径")
	record := flag.String("record", "", "把入站事件按 JSON lines 录制到该文件，供 replay 回放")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	base, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	lg := base.With(
		zap.String("session", uuid.NewString()),
		zap.String("env", cfg.Agent.Env),
	)

	code := 0
	if err := run(cfg, *cfgPath, *record, lg); err != nil {
		lg.Error("agent exited with error", zap.Error(err))
		code = 1
	}
	_ = base.Close()
	os.Exit(code)
}

func run(cfg config.AppConfig, cfgPath, recordPath string, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(cfg.Metrics.Monitor)
	alerts := alert.NewManager([]alert.Channel{alert.NewZapChannel("log", lg)}, cfg.Alert.ThrottleInterval)
	if hook := cfg.Alert.Webhook; hook.URL != "" {
		level, _ := alert.ParseLevel(hook.MinLevel)
		alerts.AddChannel(alert.NewWebhookChannel(hook.URL, level, hook.Timeout))
	}

	client, err := gateway.NewClient(cfg.Venue, lg, mon)
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	pub := market.NewPublisher()
	books := pub.SubscribeBooks(256)
	trades := pub.SubscribeTrades(256)
	opts := engine.Options{
		Config:       cfg.EngineRuntime(),
		Gateway:      client,
		AlertManager: alerts,
		Monitor:      mon,
		Logger:       lg,
		Publisher:    pub,
	}

	if cfg.Journal.Enabled {
		jr, err := store.Open(cfg.Journal.Path, store.Options{Buffer: cfg.Journal.Buffer, Logger: lg, Monitor: mon})
		if err != nil {
			return err
		}
		defer func() {
			if err := jr.Close(); err != nil {
				lg.LogError(err, zap.String("component", "journal"))
			}
			lg.Info("journal closed", zap.Int64("written", jr.Written()), zap.Int64("dropped", jr.Dropped()))
		}()
		opts.Journal = jr
	}

	eng, err := engine.Build(params, opts)
	if err != nil {
		return err
	}

	var sink gateway.Sink = eng
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		rec := sim.NewRecorder(f, eng)
		defer func() {
			if err := rec.Err(); err != nil {
				lg.LogError(err, zap.String("component", "recorder"))
			}
		}()
		sink = rec
	}

	if cfg.Metrics.Enabled {
		srv, err := metrics.StartMetricsServer(cfg.Metrics.Addr, mon.Handler(), lg)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	var watcher *config.Watcher
	if cfg.Agent.Watch.Enabled {
		if watcher, err = config.NewWatcher(cfgPath, cfg, eng, lg); err != nil {
			return err
		}
	}

	// 引擎先停（撤掉报价），连接等撤单发出去后再断。
	engineCtx, stopEngine := context.WithCancel(ctx)
	defer stopEngine()
	venueCtx, stopVenue := context.WithCancel(context.Background())
	defer stopVenue()

	var (
		lifecycle conc.WaitGroup
		engineErr error
	)
	lifecycle.Go(func() {
		engineErr = eng.Run(engineCtx)
		stopEngine()

		dctx, cancel := context.WithTimeout(context.Background(), cfg.Venue.WriteTimeout)
		if err := client.Drain(dctx); err != nil {
			lg.Warn("venue queue not drained", zap.Error(err))
		}
		cancel()
		stopVenue()
	})
	lifecycle.Go(func() {
		if err := client.Run(venueCtx, sink); err != nil {
			lg.LogError(err, zap.String("component", "venue"))
		}
	})
	lifecycle.Go(func() {
		tapMarket(engineCtx, books, trades, params.TickSize, mon)
	})
	if watcher != nil {
		lifecycle.Go(func() {
			if err := watcher.Run(engineCtx); err != nil {
				lg.LogError(err, zap.String("component", "config"))
			}
		})
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	lifecycle.Go(func() {
		for {
			select {
			case <-engineCtx.Done():
				return
			case <-hup:
				if watcher != nil {
					_ = watcher.Reload()
				}
			}
		}
	})

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify failed", zap.Error(err))
	} else if sent {
		lg.Debug("sd_notify ready sent")
	}
	lg.Info("agent started",
		zap.String("venue", cfg.Venue.URL),
		zap.Int64("position_limit", params.PositionLimit),
		zap.String("sizing", params.Quoting.Sizing.String()),
	)

	<-engineCtx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	lg.Info("shutting down")
	lifecycle.Wait()

	st := eng.Stats()
	lg.Info("agent stopped",
		zap.String("state", eng.State().String()),
		zap.Int64("events", st.Events),
		zap.Int64("fills", st.Fills),
		zap.Int64("hedges", st.Hedges),
		zap.Any("statement", eng.Statement()),
	)
	if errors.Is(engineErr, context.Canceled) {
		return nil
	}
	return engineErr
}
