package relay

import "testing"

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want ControlMessage
	}{
		{
			name: "success",
			raw:  "SUCCESS 100",
			want: ControlMessage{Kind: KindTaskSucceeded, Recipient: 100},
		},
		{
			name: "success embedded in chatter",
			raw:  "some text SUCCESS 12345 extra",
			want: ControlMessage{Kind: KindTaskSucceeded, Recipient: 12345},
		},
		{
			name: "keyword inside a larger token",
			raw:  "[worker] SUCCESS: 42",
			want: ControlMessage{Kind: KindTaskSucceeded, Recipient: 42},
		},
		{
			name: "fail with reason",
			raw:  "FAIL 100 portal returned 503 twice",
			want: ControlMessage{Kind: KindTaskFailed, Recipient: 100, Reason: "portal returned 503 twice"},
		},
		{
			name: "fail without reason",
			raw:  "FAIL 100",
			want: ControlMessage{Kind: KindTaskFailed, Recipient: 100},
		},
		{
			name: "challenge request",
			raw:  "CAPTCHA_REQ 100",
			want: ControlMessage{Kind: KindChallengeRequest, Recipient: 100},
		},
		{
			name: "challenge request with artifact text",
			raw:  "CAPTCHA_REQ 100 x7gq2",
			want: ControlMessage{Kind: KindChallengeRequest, Recipient: 100, Artifact: "x7gq2"},
		},
		{
			name: "scrape request echo",
			raw:  "REQ_SCRAPE 100",
			want: ControlMessage{Kind: KindScrapeRequest, Recipient: 100},
		},
		{
			name: "solution echo",
			raw:  "CAPTCHA_SOL 100 ab12",
			want: ControlMessage{Kind: KindChallengeSolution, Recipient: 100, Solution: "ab12"},
		},
		{
			name: "negative chat id",
			raw:  "SUCCESS -100123456",
			want: ControlMessage{Kind: KindTaskSucceeded, Recipient: -100123456},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			if !ok {
				t.Fatalf("Parse(%q) yielded no message", tt.raw)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseMisses(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain chatter", raw: "hello world"},
		{name: "empty", raw: ""},
		{name: "whitespace", raw: "   \n\t "},
		{name: "keyword without recipient", raw: "SUCCESS"},
		{name: "keyword with non-numeric recipient", raw: "SUCCESS someone"},
		{name: "lowercase keyword", raw: "success 100"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Parse(tt.raw); ok {
				t.Fatalf("Parse(%q) = %+v, want no message", tt.raw, got)
			}
		})
	}
}

func TestFormatOutbound(t *testing.T) {
	t.Parallel()
	if got := formatScrapeRequest(100); got != "REQ_SCRAPE 100" {
		t.Fatalf("formatScrapeRequest = %q", got)
	}
	if got := formatSolution(100, "ab12"); got != "CAPTCHA_SOL 100 ab12" {
		t.Fatalf("formatSolution = %q", got)
	}
}

// The outbound vocabulary must round-trip through the parser so our own
// emissions are recognized (and ignored) when they surface inbound.
func TestOutboundRoundTrip(t *testing.T) {
	t.Parallel()
	msg, ok := Parse(formatSolution(7, "abc"))
	if !ok || msg.Kind != KindChallengeSolution || msg.Solution != "abc" {
		t.Fatalf("round-trip = (%+v, %v)", msg, ok)
	}
}
