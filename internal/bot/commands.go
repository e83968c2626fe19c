package bot

import (
	"context"
	"fmt"
	"strings"

	"bunkbot/internal/sheets"
	kit "bunkbot/internal/transport"
	logx "bunkbot/pkg/logx"
	"bunkbot/pkg/tgui"
)

const (
	cbMainMenu     = "main_menu"
	cbSummary      = "cmd_summary"
	cbBelow85      = "cmd_below85"
	cbHelpAttend   = "help_attendance"
	cbHelpBunk     = "help_bunk"
	cbAlertsStatus = "cmd_alerts_status"

	msgNoStorage   = "⚠️ Subscriptions are not configured."
	msgFetchFailed = "⚠️ Could not fetch attendance data. Try again later."
)

func welcomeText() string {
	return "👋 *Welcome to BunkBot!*\n\n" +
		"I track your attendance and tell you what you can afford to skip.\n\n" +
		"*Commands*\n" +
		"/summary — full attendance summary\n" +
		"/below85 — subjects under 85%\n" +
		"/attendance <subject> — details for one subject\n" +
		"/bunk <subject> — can you bunk the next class?\n" +
		"/alerts on|off|status — daily digest subscription\n" +
		"/testdaily — preview today's digest\n" +
		"/scrape — refresh data (solve a captcha if asked)\n" +
		"/cancel — abort a pending refresh"
}

func mainMenu() *tgui.Inline {
	m := tgui.NewInline()
	m.Row(tgui.Btn("📊 Summary", cbSummary), tgui.Btn("⚠️ Below 85%", cbBelow85))
	m.Row(tgui.Btn("📚 Subject detail", cbHelpAttend), tgui.Btn("🏖 Bunk check", cbHelpBunk))
	m.Row(tgui.Btn("🔔 Alerts status", cbAlertsStatus))
	return m
}

func markdownOpts(markup any) *kit.SendOptions {
	return &kit.SendOptions{ParseMode: "Markdown", DisablePreview: true, ReplyMarkupAdapter: markup}
}

// handleCommand parses "/cmd args" and runs the matching handler.
// "/cmd@BotName" is accepted the same as "/cmd".
func (r *Router) handleCommand(ctx context.Context, m kit.Message, text string) {
	cmd, args := splitCommand(text)
	r.log.Debug("command", logx.String("cmd", cmd), logx.Int64("chat_id", m.ChatID))

	switch cmd {
	case "start":
		r.reply(ctx, m.ChatID, welcomeText(), markdownOpts(mainMenu().Markup()))
	case "menu":
		r.reply(ctx, m.ChatID, "Pick an option:", markdownOpts(mainMenu().Markup()))
	case "summary":
		r.sendSummary(ctx, m.ChatID)
	case "below85":
		r.sendBelow85(ctx, m.ChatID)
	case "attendance":
		r.sendDetail(ctx, m.ChatID, args)
	case "bunk":
		r.sendBunk(ctx, m.ChatID, args)
	case "alerts":
		r.handleAlerts(ctx, m.ChatID, args)
	case "testdaily":
		r.handleTestDaily(ctx, m.ChatID)
	case "scrape":
		r.handleScrape(ctx, m.ChatID)
	case "cancel":
		r.handleCancel(ctx, m.ChatID)
	default:
		r.reply(ctx, m.ChatID, "Unknown command. Try /start.", nil)
	}
}

func splitCommand(text string) (cmd, args string) {
	text = strings.TrimPrefix(text, "/")
	cmd, args, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func (r *Router) fetchRows(ctx context.Context, chatID int64) ([]sheets.AttendanceRow, bool) {
	rows, err := r.sheets.FetchFor(ctx, chatID)
	if err != nil {
		r.log.Warn("attendance fetch failed", logx.Int64("chat_id", chatID), logx.Err(err))
		r.reply(ctx, chatID, msgFetchFailed, nil)
		return nil, false
	}
	return rows, true
}

func (r *Router) sendSummary(ctx context.Context, chatID int64) {
	rows, ok := r.fetchRows(ctx, chatID)
	if !ok {
		return
	}
	r.reply(ctx, chatID, sheets.SummaryText(rows), markdownOpts(nil))
}

func (r *Router) sendBelow85(ctx context.Context, chatID int64) {
	rows, ok := r.fetchRows(ctx, chatID)
	if !ok {
		return
	}
	r.reply(ctx, chatID, sheets.BelowThresholdText(rows), markdownOpts(nil))
}

func (r *Router) sendDetail(ctx context.Context, chatID int64, query string) {
	if query == "" {
		r.reply(ctx, chatID, "Usage: /attendance <subject>", nil)
		return
	}
	rows, ok := r.fetchRows(ctx, chatID)
	if !ok {
		return
	}
	matched := sheets.Match(query, rows)
	if len(matched) == 0 {
		r.reply(ctx, chatID, fmt.Sprintf("❌ No subject matching *%s*.", query), markdownOpts(nil))
		return
	}
	r.reply(ctx, chatID, sheets.DetailText(matched), markdownOpts(nil))
}

func (r *Router) sendBunk(ctx context.Context, chatID int64, query string) {
	if query == "" {
		r.reply(ctx, chatID, "Usage: /bunk <subject>", nil)
		return
	}
	rows, ok := r.fetchRows(ctx, chatID)
	if !ok {
		return
	}
	matched := sheets.Match(query, rows)
	if len(matched) == 0 {
		r.reply(ctx, chatID, fmt.Sprintf("❌ No subject matching *%s*.", query), markdownOpts(nil))
		return
	}
	r.reply(ctx, chatID, sheets.BunkText(matched), markdownOpts(nil))
}

func (r *Router) handleAlerts(ctx context.Context, chatID int64, args string) {
	if r.subs == nil {
		r.reply(ctx, chatID, msgNoStorage, nil)
		return
	}
	switch strings.ToLower(args) {
	case "on":
		if err := r.subs.SetEnabled(ctx, chatID, true); err != nil {
			r.log.Error("subscription update failed", logx.Int64("chat_id", chatID), logx.Err(err))
			r.reply(ctx, chatID, "⚠️ Could not update your subscription.", nil)
			return
		}
		r.reply(ctx, chatID, fmt.Sprintf("✅ Daily alerts ENABLED (%s)", r.digestAt), nil)
	case "off":
		if err := r.subs.SetEnabled(ctx, chatID, false); err != nil {
			r.log.Error("subscription update failed", logx.Int64("chat_id", chatID), logx.Err(err))
			r.reply(ctx, chatID, "⚠️ Could not update your subscription.", nil)
			return
		}
		r.reply(ctx, chatID, "❌ Daily alerts DISABLED", nil)
	case "", "status":
		enabled, err := r.subs.Get(ctx, chatID)
		if err != nil {
			r.log.Error("subscription lookup failed", logx.Int64("chat_id", chatID), logx.Err(err))
			r.reply(ctx, chatID, "⚠️ Could not check your subscription.", nil)
			return
		}
		if enabled {
			r.reply(ctx, chatID, fmt.Sprintf("🔔 Daily alerts are ON (%s). Use /alerts off to stop.", r.digestAt), nil)
		} else {
			r.reply(ctx, chatID, "🔕 Daily alerts are OFF. Use /alerts on to subscribe.", nil)
		}
	default:
		r.reply(ctx, chatID, "Usage: /alerts on|off|status", nil)
	}
}

func (r *Router) handleTestDaily(ctx context.Context, chatID int64) {
	r.reply(ctx, chatID, "🔄 Generating preview...", nil)
	if err := r.digest.Preview(ctx, chatID); err != nil {
		r.reply(ctx, chatID, msgFetchFailed, nil)
	}
}

func (r *Router) handleScrape(ctx context.Context, chatID int64) {
	if err := r.relay.RequestScrape(ctx, chatID); err != nil {
		r.log.Warn("scrape request failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (r *Router) handleCancel(ctx context.Context, chatID int64) {
	if err := r.relay.Cancel(ctx, chatID); err != nil {
		r.log.Warn("cancel failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (r *Router) handleCallback(ctx context.Context, cb kit.Callback) {
	if err := r.adapter.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.log.Debug("callback ack failed", logx.Err(err))
	}

	switch cb.Data {
	case cbMainMenu:
		r.edit(ctx, cb, "Pick an option:", mainMenu().Markup())
	case cbSummary:
		r.sendSummary(ctx, cb.ChatID)
	case cbBelow85:
		r.sendBelow85(ctx, cb.ChatID)
	case cbHelpAttend:
		r.reply(ctx, cb.ChatID, "Send /attendance <subject>, e.g. `/attendance maths`.", markdownOpts(nil))
	case cbHelpBunk:
		r.reply(ctx, cb.ChatID, "Send /bunk <subject>, e.g. `/bunk physics`.", markdownOpts(nil))
	case cbAlertsStatus:
		r.handleAlerts(ctx, cb.ChatID, "status")
	default:
		r.log.Debug("unknown callback", logx.String("data", cb.Data))
	}
}

func (r *Router) edit(ctx context.Context, cb kit.Callback, text string, markup any) {
	ref := kit.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if err := r.adapter.EditText(ctx, ref, text, markdownOpts(markup)); err != nil {
		r.log.Debug("edit failed", logx.Err(err))
		r.reply(ctx, cb.ChatID, text, markdownOpts(markup))
	}
}
