package relay

import (
	"context"
	"strings"

	"bunkbot/internal/session"
	"bunkbot/internal/sheets"
	kit "bunkbot/internal/transport"
	logx "bunkbot/pkg/logx"
)

// Fetcher is the slice of the sheets client the engine needs.
type Fetcher interface {
	FetchFor(ctx context.Context, recipient int64) ([]sheets.AttendanceRow, error)
}

const (
	msgNotConfigured   = "⚠️ Scrape relay is not configured. Ask the operator to set the control channel."
	msgScrapeSent      = "📡 Scrape signal sent! You'll receive the captcha here once the worker picks it up."
	msgAlreadyPending  = "⏳ You already have a scrape request in flight. Wait for it to finish (or /cancel it)."
	msgUnsolicited     = "🤔 There's no scrape session open for you, so I wasn't expecting input. Use /scrape to start one."
	msgChallengePrompt = "🧩 Captcha time! Reply here with the text you see."
	msgSucceeded       = "✅ Scrape finished! Fetching your attendance…"
)

// Engine translates between the recipient-facing chat and the
// worker-facing control channel. It owns no persistent state: sessions
// live in the registry, everything else flows through.
type Engine struct {
	adapter  kit.Adapter
	sessions *session.Registry
	fetcher  Fetcher
	control  kit.ChatTarget
	log      logx.Logger

	// enabled is false when the control channel is unconfigured; the
	// engine then answers every request with a configuration notice
	// instead of crashing the feature at startup.
	enabled bool
}

func NewEngine(adapter kit.Adapter, sessions *session.Registry, fetcher Fetcher, controlChatID int64, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		adapter:  adapter,
		sessions: sessions,
		fetcher:  fetcher,
		control:  kit.ChatTarget{ChatID: controlChatID},
		log:      log,
		enabled:  controlChatID != 0,
	}
	if !e.enabled {
		log.Error("control channel not configured; relay disabled for this process")
	}
	return e
}

// Enabled reports whether the relay has a control channel to talk to.
func (e *Engine) Enabled() bool { return e.enabled }

// ControlChatID returns the configured control channel id (0 if disabled).
func (e *Engine) ControlChatID() int64 { return e.control.ChatID }

// RequestScrape opens a session for the recipient and emits the scrape
// command on the control channel. A recipient with a session already
// open gets an informational reply and no second emission.
func (e *Engine) RequestScrape(ctx context.Context, recipient int64) error {
	to := kit.ChatTarget{ChatID: recipient}
	if !e.enabled {
		_, err := e.adapter.SendText(ctx, to, msgNotConfigured, nil)
		return err
	}

	if !e.sessions.Begin(recipient) {
		e.log.Debug("duplicate scrape request", logx.Int64("recipient", recipient))
		_, err := e.adapter.SendText(ctx, to, msgAlreadyPending, nil)
		return err
	}

	if _, err := e.adapter.SendText(ctx, e.control, formatScrapeRequest(recipient), nil); err != nil {
		// Roll the session back so the recipient can retry.
		e.sessions.End(recipient)
		e.log.Warn("scrape request emission failed", logx.Int64("recipient", recipient), logx.Err(err))
		_, _ = e.adapter.SendText(ctx, to, "⚠️ Couldn't reach the scrape worker channel. Try again later.", nil)
		return err
	}

	e.log.Info("scrape requested", logx.Int64("recipient", recipient))
	_, err := e.adapter.SendText(ctx, to, msgScrapeSent, nil)
	return err
}

// ForwardSolution re-emits the recipient's captcha solution on the
// control channel. The session stays open: one challenge may take
// several rounds before the worker reports a terminal result.
func (e *Engine) ForwardSolution(ctx context.Context, recipient int64, text string) error {
	to := kit.ChatTarget{ChatID: recipient}
	if !e.enabled {
		_, err := e.adapter.SendText(ctx, to, msgNotConfigured, nil)
		return err
	}

	text = strings.TrimSpace(text)
	if !e.sessions.Has(recipient) || text == "" {
		_, err := e.adapter.SendText(ctx, to, msgUnsolicited, nil)
		return err
	}

	if _, err := e.adapter.SendText(ctx, e.control, formatSolution(recipient, text), nil); err != nil {
		e.log.Warn("solution emission failed", logx.Int64("recipient", recipient), logx.Err(err))
		_, _ = e.adapter.SendText(ctx, to, "⚠️ Couldn't forward your solution. Try sending it again.", nil)
		return err
	}

	e.log.Info("solution forwarded", logx.Int64("recipient", recipient))
	_, err := e.adapter.SendText(ctx, to, "📨 Solution forwarded. Hang tight while it's verified.", nil)
	return err
}

// Cancel abandons the recipient's session without a worker verdict.
func (e *Engine) Cancel(ctx context.Context, recipient int64) error {
	to := kit.ChatTarget{ChatID: recipient}
	if !e.sessions.Has(recipient) {
		_, err := e.adapter.SendText(ctx, to, "Nothing to cancel — no scrape session open.", nil)
		return err
	}
	e.sessions.End(recipient)
	e.log.Info("session cancelled", logx.Int64("recipient", recipient))
	_, err := e.adapter.SendText(ctx, to, "🗑 Scrape session cancelled. The worker may still post a stale result; it will be ignored.", nil)
	return err
}

// HandleControl consumes one message from the control channel. Lines
// that don't parse are unrelated chatter and are dropped silently.
func (e *Engine) HandleControl(ctx context.Context, m kit.Message) {
	msg, ok := Parse(m.Text)
	if !ok {
		return
	}

	log := e.log.With(logx.String("event", msg.Kind.String()), logx.Int64("recipient", msg.Recipient))
	to := kit.ChatTarget{ChatID: msg.Recipient}

	switch msg.Kind {
	case KindChallengeRequest:
		if !e.sessions.Has(msg.Recipient) {
			// Likely a session lost to a restart; deliver anyway so the
			// human can still decide what to do with it.
			log.Warn("challenge for recipient with no open session")
		}
		e.deliverChallenge(ctx, to, m.PhotoID, msg.Artifact, log)

	case KindTaskSucceeded:
		e.sessions.End(msg.Recipient)
		log.Info("scrape succeeded")
		if _, err := e.adapter.SendText(ctx, to, msgSucceeded, nil); err != nil {
			log.Warn("success notification failed", logx.Err(err))
		}
		e.sendReport(ctx, to, msg.Recipient, log)

	case KindTaskFailed:
		e.sessions.End(msg.Recipient)
		log.Info("scrape failed", logx.String("reason", msg.Reason))
		reason := msg.Reason
		if reason == "" {
			reason = "no reason given"
		}
		if _, err := e.adapter.SendText(ctx, to, "❌ Scrape failed: "+reason, nil); err != nil {
			log.Warn("failure notification failed", logx.Err(err))
		}

	case KindScrapeRequest, KindChallengeSolution:
		// Our own vocabulary reflected back at us; not a worker event.
		log.Debug("ignoring outbound-vocabulary line on inbound side")
	}
}

func (e *Engine) deliverChallenge(ctx context.Context, to kit.ChatTarget, photoID, artifactText string, log logx.Logger) {
	var err error
	if photoID != "" {
		_, err = e.adapter.SendPhoto(ctx, to, photoID, msgChallengePrompt, nil)
	} else if artifactText != "" {
		_, err = e.adapter.SendText(ctx, to, msgChallengePrompt+"\n\n"+artifactText, nil)
	} else {
		_, err = e.adapter.SendText(ctx, to, msgChallengePrompt, nil)
	}
	if err != nil {
		log.Warn("challenge delivery failed", logx.Err(err))
		return
	}
	log.Info("challenge forwarded", logx.Bool("photo", photoID != ""))
}

func (e *Engine) sendReport(ctx context.Context, to kit.ChatTarget, recipient int64, log logx.Logger) {
	rows, err := e.fetcher.FetchFor(ctx, recipient)
	if err != nil {
		log.Warn("post-scrape fetch failed", logx.Err(err))
		_, _ = e.adapter.SendText(ctx, to, "⚠️ Scrape succeeded but fetching the fresh data failed: "+err.Error(), nil)
		return
	}
	opt := &kit.SendOptions{ParseMode: "Markdown"}
	if _, err := e.adapter.SendText(ctx, to, sheets.SummaryText(rows), opt); err != nil {
		log.Warn("report delivery failed", logx.Err(err))
	}
}
