package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"bunkbot/internal/session"
	"bunkbot/internal/sheets"
	kit "bunkbot/internal/transport"
	logx "bunkbot/pkg/logx"
)

type sentText struct {
	To   int64
	Text string
}

type sentPhoto struct {
	To      int64
	PhotoID string
	Caption string
}

// fakeAdapter records sends; failTo makes sends to one chat fail.
type fakeAdapter struct {
	mu     sync.Mutex
	texts  []sentText
	photos []sentPhoto
	failTo int64
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo != 0 && to.ChatID == f.failTo {
		return kit.MessageRef{}, errors.New("send failed")
	}
	f.texts = append(f.texts, sentText{To: to.ChatID, Text: text})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.texts)}, nil
}

func (f *fakeAdapter) SendPhoto(ctx context.Context, to kit.ChatTarget, photoID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentPhoto{To: to.ChatID, PhotoID: photoID, Caption: caption})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.photos)}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func (f *fakeAdapter) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.texts {
		if s.To == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

type fakeFetcher struct {
	rows []sheets.AttendanceRow
	err  error
}

func (f *fakeFetcher) FetchFor(ctx context.Context, recipient int64) ([]sheets.AttendanceRow, error) {
	return f.rows, f.err
}

const controlChat = int64(-900)

func newTestEngine(ad *fakeAdapter, fe Fetcher) (*Engine, *session.Registry) {
	reg := session.NewRegistry()
	return NewEngine(ad, reg, fe, controlChat, logx.Nop()), reg
}

func TestScrapeChallengeSuccessFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	fe := &fakeFetcher{rows: []sheets.AttendanceRow{{Subject: "Maths", Kind: "Theory", Ratio: 0.8}}}
	eng, reg := newTestEngine(ad, fe)

	// Recipient 100 asks for a scrape.
	if err := eng.RequestScrape(ctx, 100); err != nil {
		t.Fatalf("RequestScrape: %v", err)
	}
	if !reg.Has(100) {
		t.Fatal("session should be open after scrape request")
	}
	ctl := ad.sentTo(controlChat)
	if len(ctl) != 1 || ctl[0] != "REQ_SCRAPE 100" {
		t.Fatalf("control emissions = %v", ctl)
	}

	// Worker posts the captcha as a photo with a control caption.
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "CAPTCHA_REQ 100", PhotoID: "file-abc"})
	if len(ad.photos) != 1 || ad.photos[0].To != 100 || ad.photos[0].PhotoID != "file-abc" {
		t.Fatalf("photos = %+v", ad.photos)
	}
	if !reg.Has(100) {
		t.Fatal("challenge must not close the session")
	}

	// Recipient replies with the solution.
	if err := eng.ForwardSolution(ctx, 100, "ab12"); err != nil {
		t.Fatalf("ForwardSolution: %v", err)
	}
	ctl = ad.sentTo(controlChat)
	if len(ctl) != 2 || ctl[1] != "CAPTCHA_SOL 100 ab12" {
		t.Fatalf("control emissions = %v", ctl)
	}
	if !reg.Has(100) {
		t.Fatal("solution forwarding must keep the session open for re-validation")
	}

	// Worker reports success: session closes, summary is delivered.
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "SUCCESS 100"})
	if reg.Has(100) {
		t.Fatal("terminal event should close the session")
	}
	user := ad.sentTo(100)
	found := false
	for _, m := range user {
		if strings.Contains(m, "Maths") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected attendance summary among %v", user)
	}
}

func TestDuplicateScrapeRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, _ := newTestEngine(ad, &fakeFetcher{})

	if err := eng.RequestScrape(ctx, 100); err != nil {
		t.Fatalf("RequestScrape: %v", err)
	}
	if err := eng.RequestScrape(ctx, 100); err != nil {
		t.Fatalf("second RequestScrape: %v", err)
	}

	// Exactly one control emission; the second attempt only informs the user.
	if ctl := ad.sentTo(controlChat); len(ctl) != 1 {
		t.Fatalf("control emissions = %v, want exactly one", ctl)
	}
	user := ad.sentTo(100)
	if len(user) != 2 || !strings.Contains(user[1], "already") {
		t.Fatalf("user messages = %v", user)
	}
}

func TestUnsolicitedSolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, _ := newTestEngine(ad, &fakeFetcher{})

	if err := eng.ForwardSolution(ctx, 100, "ab12"); err != nil {
		t.Fatalf("ForwardSolution: %v", err)
	}
	if ctl := ad.sentTo(controlChat); len(ctl) != 0 {
		t.Fatalf("unsolicited solution must not reach the control channel, got %v", ctl)
	}
	user := ad.sentTo(100)
	if len(user) != 1 || !strings.Contains(user[0], "wasn't expecting") {
		t.Fatalf("user messages = %v", user)
	}
}

func TestTaskFailedRelaysReason(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, reg := newTestEngine(ad, &fakeFetcher{})

	_ = eng.RequestScrape(ctx, 100)
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "FAIL 100 portal login rejected"})

	if reg.Has(100) {
		t.Fatal("failure should close the session")
	}
	user := ad.sentTo(100)
	last := user[len(user)-1]
	if !strings.Contains(last, "portal login rejected") {
		t.Fatalf("reason not relayed verbatim: %q", last)
	}
}

func TestInboundEchoIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, reg := newTestEngine(ad, &fakeFetcher{})

	_ = eng.RequestScrape(ctx, 100)
	before := len(ad.sentTo(100))

	// Our own outbound vocabulary reflected back must not disturb anything.
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "REQ_SCRAPE 100"})
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "CAPTCHA_SOL 100 ab12"})

	if !reg.Has(100) {
		t.Fatal("echoed lines must not close the session")
	}
	if got := len(ad.sentTo(100)); got != before {
		t.Fatalf("echoed lines must not message the user (before=%d after=%d)", before, got)
	}
}

func TestChatterIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, _ := newTestEngine(ad, &fakeFetcher{})

	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "worker restarting, brb"})
	if len(ad.texts) != 0 && len(ad.photos) != 0 {
		t.Fatalf("chatter must produce no sends: %v %v", ad.texts, ad.photos)
	}
}

func TestEmissionFailureRollsBackSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{failTo: controlChat}
	eng, reg := newTestEngine(ad, &fakeFetcher{})

	if err := eng.RequestScrape(ctx, 100); err == nil {
		t.Fatal("expected emission error")
	}
	if reg.Has(100) {
		t.Fatal("failed emission should roll the session back")
	}
}

func TestDisabledEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	reg := session.NewRegistry()
	eng := NewEngine(ad, reg, &fakeFetcher{}, 0, logx.Nop())

	if eng.Enabled() {
		t.Fatal("engine without a control chat must be disabled")
	}
	_ = eng.RequestScrape(ctx, 100)
	if reg.Has(100) {
		t.Fatal("disabled engine must not open sessions")
	}
	user := ad.sentTo(100)
	if len(user) != 1 || !strings.Contains(user[0], "not configured") {
		t.Fatalf("user messages = %v", user)
	}
}

func TestSuccessWithFetchFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ad := &fakeAdapter{}
	eng, reg := newTestEngine(ad, &fakeFetcher{err: errors.New("endpoint down")})

	_ = eng.RequestScrape(ctx, 100)
	eng.HandleControl(ctx, kit.Message{ChatID: controlChat, Text: "SUCCESS 100"})

	if reg.Has(100) {
		t.Fatal("session should close even when the follow-up fetch fails")
	}
	user := ad.sentTo(100)
	last := user[len(user)-1]
	if !strings.Contains(last, "endpoint down") {
		t.Fatalf("fetch failure should be reported to the recipient: %v", user)
	}
}
