package digest

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"bunkbot/internal/sheets"
	kit "bunkbot/internal/transport"
	logx "bunkbot/pkg/logx"
)

type Config struct {
	Enabled    bool
	At         string // "HH:MM" wall clock
	Timezone   string // IANA name; host local time if empty
	RatePerSec int    // outbound send pacing during fan-out
}

// Subscriptions is the slice of the subscription store the broadcaster
// needs. A nil implementation behaves as an always-empty store.
type Subscriptions interface {
	Enabled(ctx context.Context) ([]int64, error)
	Len(ctx context.Context) (int, error)
}

type Fetcher interface {
	Fetch(ctx context.Context) ([]sheets.AttendanceRow, error)
}

// Service runs the scheduled daily digest broadcast and manual previews.
type Service struct {
	cfg     Config
	adapter kit.Adapter
	subs    Subscriptions
	fetcher Fetcher
	log     logx.Logger

	limiter *rate.Limiter
	c       *cron.Cron
}

func New(cfg Config, adapter kit.Adapter, subs Subscriptions, fetcher Fetcher, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Service{
		cfg:     cfg,
		adapter: adapter,
		subs:    subs,
		fetcher: fetcher,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Start registers the daily cron trigger. Disabled config is a no-op.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("daily digest disabled")
		return nil
	}

	spec, err := cronSpec(s.cfg.At)
	if err != nil {
		return fmt.Errorf("digest schedule: %w", err)
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest timezone: %w", err)
		}
	}

	s.c = cron.New(cron.WithLocation(loc))
	_, err = s.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in digest broadcast", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			}
		}()
		if err := s.Broadcast(ctx); err != nil {
			s.log.Warn("scheduled digest cycle failed", logx.Err(err))
		}
	})
	if err != nil {
		return err
	}

	s.c.Start()
	s.log.Info("daily digest scheduled", logx.String("at", s.cfg.At), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	if s.c == nil {
		return
	}
	drained := s.c.Stop().Done()
	select {
	case <-drained:
	case <-ctx.Done():
		s.log.Warn("digest stop cancelled before jobs drained")
	}
	s.c = nil
}

// Broadcast runs one scheduled cycle: skip when nobody subscribed,
// fetch, render once, fan out to every enabled recipient. One bad
// recipient never blocks the rest.
func (s *Service) Broadcast(ctx context.Context) error {
	// Skip before fetching: no subscribers means the remote call is wasted.
	n, err := s.subscriberCount(ctx)
	if err != nil {
		return fmt.Errorf("subscription count: %w", err)
	}
	if n == 0 {
		s.log.Debug("digest skipped, no subscribers")
		return nil
	}

	text, err := s.render(ctx)
	if err != nil {
		return err
	}

	targets, err := s.subs.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("subscription list: %w", err)
	}

	start := time.Now()
	failed := 0
	for _, id := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.sendTo(ctx, id, text); err != nil {
			failed++
			s.log.Warn("digest send failed", logx.Int64("chat_id", id), logx.Err(err))
		}
	}

	fields := []logx.Field{
		logx.Int("total", len(targets)),
		logx.Int("failed", failed),
		logx.Duration("took", time.Since(start)),
	}
	if failed > 0 {
		s.log.Warn("digest broadcast finished with failures", fields...)
	} else {
		s.log.Info("digest broadcast finished", fields...)
	}
	return nil
}

// Preview renders the digest and sends it only to the requesting
// recipient, bypassing the subscription store.
func (s *Service) Preview(ctx context.Context, target int64) error {
	text, err := s.render(ctx)
	if err != nil {
		// Manual caller gets the fetch failure directly.
		_, _ = s.adapter.SendText(ctx, kit.ChatTarget{ChatID: target}, "⚠️ Failed to fetch data: "+err.Error(), nil)
		return err
	}
	return s.sendTo(ctx, target, text)
}

func (s *Service) render(ctx context.Context) (string, error) {
	rows, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	return Render(Compute(rows)), nil
}

func (s *Service) sendTo(ctx context.Context, chatID int64, text string) error {
	_, err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{ParseMode: "Markdown"})
	return err
}

func (s *Service) subscriberCount(ctx context.Context) (int, error) {
	if s.subs == nil {
		return 0, nil
	}
	return s.subs.Len(ctx)
}

// cronSpec converts "HH:MM" into a five-field cron spec.
func cronSpec(at string) (string, error) {
	h, m, err := parseHHMM(at)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid HH:MM %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
