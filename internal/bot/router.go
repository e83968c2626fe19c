// Package bot routes incoming chat updates to the relay engine, the
// report commands, and the subscription/digest controls.
package bot

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"bunkbot/internal/digest"
	"bunkbot/internal/relay"
	"bunkbot/internal/session"
	"bunkbot/internal/sheets"
	"bunkbot/internal/store"
	kit "bunkbot/internal/transport"
	logx "bunkbot/pkg/logx"
)

// handlerTimeout bounds one user command end to end; individual network
// calls carry their own tighter timeouts.
const handlerTimeout = 60 * time.Second

type Router struct {
	adapter  kit.Adapter
	relay    *relay.Engine
	sheets   *sheets.Client
	subs     store.Store // nil when storage is disabled
	digest   *digest.Service
	sessions *session.Registry
	log      logx.Logger

	controlChatID int64
	digestAt      string

	wg sync.WaitGroup
}

func NewRouter(
	adapter kit.Adapter,
	eng *relay.Engine,
	client *sheets.Client,
	subs store.Store,
	dig *digest.Service,
	sessions *session.Registry,
	controlChatID int64,
	digestAt string,
	log logx.Logger,
) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		adapter:       adapter,
		relay:         eng,
		sheets:        client,
		subs:          subs,
		digest:        dig,
		sessions:      sessions,
		controlChatID: controlChatID,
		digestAt:      digestAt,
		log:           log,
	}
}

// Run consumes updates until ctx is cancelled. Each update is handled
// in its own goroutine so a slow fetch never blocks the control channel.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return
		case up, ok := <-updates:
			if !ok {
				r.wg.Wait()
				return
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						r.log.Error("panic in update handler", logx.Any("panic", rec), logx.Stack(string(debug.Stack())))
					}
				}()
				hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
				defer cancel()
				r.dispatch(hctx, up)
			}()
		}
	}
}

func (r *Router) dispatch(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(ctx, *up.Callback)
		}
	case kit.UpdateMessage:
		if up.Message == nil {
			return
		}
		m := *up.Message

		// Everything in the control chat belongs to the relay,
		// including lines that turn out to be chatter.
		if r.controlChatID != 0 && m.ChatID == r.controlChatID {
			r.relay.HandleControl(ctx, m)
			return
		}

		text := strings.TrimSpace(m.Text)
		if strings.HasPrefix(text, "/") {
			r.handleCommand(ctx, m, text)
			return
		}

		// Free text from a recipient mid-session is a captcha solution.
		if text != "" && r.sessions.Has(m.ChatID) {
			if err := r.relay.ForwardSolution(ctx, m.ChatID, text); err != nil {
				r.log.Warn("solution forwarding failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
			}
		}
	}
}

// reply sends plain text back to the message's chat, logging on failure.
func (r *Router) reply(ctx context.Context, chatID int64, text string, opt *kit.SendOptions) {
	if _, err := r.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		r.log.Warn("reply failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
