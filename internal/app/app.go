// Package app wires configuration, transport, relay, storage and the
// digest scheduler into one runnable bot process.
package app

import (
	"context"
	"sync"
	"time"

	"bunkbot/internal/bot"
	"bunkbot/internal/config"
	"bunkbot/internal/digest"
	"bunkbot/internal/relay"
	"bunkbot/internal/session"
	"bunkbot/internal/sheets"
	"bunkbot/internal/store"
	kit "bunkbot/internal/transport"
	telegram "bunkbot/internal/transport/telegram"
	logx "bunkbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	subs    store.Store
	dig     *digest.Service
	router  *bot.Router

	updates chan kit.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	sheetsTimeout, err := config.ParseDurationOrDefault("sheets.timeout", cfg.Sheets.Timeout, 20*time.Second)
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewClient(sheets.Config{URL: cfg.Sheets.URL, Timeout: sheetsTimeout})
	if err != nil {
		return nil, err
	}

	var subs store.Store
	if cfg.Storage != nil {
		busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		subs, err = store.Open(store.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busyTimeout,
		}, log.With(logx.String("comp", "store")))
		if err != nil {
			return nil, err
		}
		if subs != nil {
			log.Info("subscription storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	sessions := session.NewRegistry()
	eng := relay.NewEngine(adapter, sessions, client, cfg.Telegram.ControlChatID,
		log.With(logx.String("comp", "relay")))

	dig := digest.New(digest.Config{
		Enabled:    cfg.Digest.Enabled,
		At:         cfg.Digest.At,
		Timezone:   cfg.Digest.Timezone,
		RatePerSec: cfg.Digest.RatePerSec,
	}, adapter, subs, client, log.With(logx.String("comp", "digest")))

	router := bot.NewRouter(adapter, eng, client, subs, dig, sessions,
		cfg.Telegram.ControlChatID, digestAt(cfg), log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: adapter,
		subs:    subs,
		dig:     dig,
		router:  router,
		updates: make(chan kit.Update, 256),
	}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func digestAt(cfg *config.Config) string {
	if cfg.Digest.At != "" {
		return cfg.Digest.At
	}
	return "09:00"
}

func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if err := a.adapter.Start(ctx, a.updates); err != nil {
		a.cancel()
		return err
	}
	if err := a.dig.Start(ctx); err != nil {
		a.cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(ctx, a.updates)
	}()

	// Hot reload: watch the config file and re-apply the logging
	// section. Everything else needs a restart to change.
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(mapLogConfig(newCfg))
				a.log.Info("config reloaded; logging settings applied")
			}
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("bot started")
	return nil
}

func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.dig.Stop(ctx)
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}
	a.wg.Wait()
	if a.subs != nil {
		if err := a.subs.Close(); err != nil {
			a.log.Warn("store close", logx.Err(err))
		}
	}
	a.log.Info("bot stopped")
	_ = a.logs.Close()
}
