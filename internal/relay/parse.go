package relay

import (
	"strconv"
	"strings"
)

// Control-channel keywords. Case-sensitive, matched by substring
// containment rather than anchored prefix: the channel doubles as a
// human-readable status surface, so a keyword may sit anywhere in the
// line. This tolerance is deliberate; don't tighten it.
const (
	kwScrapeRequest     = "REQ_SCRAPE"
	kwChallengeRequest  = "CAPTCHA_REQ"
	kwChallengeSolution = "CAPTCHA_SOL"
	kwTaskSucceeded     = "SUCCESS"
	kwTaskFailed        = "FAIL"
)

var keywords = []struct {
	kw   string
	kind Kind
}{
	{kwScrapeRequest, KindScrapeRequest},
	{kwChallengeRequest, KindChallengeRequest},
	{kwChallengeSolution, KindChallengeSolution},
	{kwTaskSucceeded, KindTaskSucceeded},
	{kwTaskFailed, KindTaskFailed},
}

// Parse turns a raw control-channel line into a ControlMessage.
//
// The recipient is the first whitespace token after the keyword token;
// anything after it is the keyword's payload (solution text, failure
// reason, artifact text). A line with no recognized keyword, or a
// keyword with no parseable recipient, yields no message: unrelated
// chatter in the shared channel is the default, not an error.
func Parse(raw string) (ControlMessage, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ControlMessage{}, false
	}

	for _, k := range keywords {
		idx := -1
		for i, f := range fields {
			if strings.Contains(f, k.kw) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		if idx+1 >= len(fields) {
			return ControlMessage{}, false
		}
		recipient, err := strconv.ParseInt(fields[idx+1], 10, 64)
		if err != nil {
			return ControlMessage{}, false
		}

		msg := ControlMessage{Kind: k.kind, Recipient: recipient}
		rest := strings.Join(fields[idx+2:], " ")
		switch k.kind {
		case KindChallengeRequest:
			msg.Artifact = rest
		case KindChallengeSolution:
			msg.Solution = rest
		case KindTaskFailed:
			msg.Reason = rest
		}
		return msg, true
	}

	return ControlMessage{}, false
}

// formatScrapeRequest and formatSolution render the outbound vocabulary.
func formatScrapeRequest(recipient int64) string {
	return kwScrapeRequest + " " + strconv.FormatInt(recipient, 10)
}

func formatSolution(recipient int64, text string) string {
	return kwChallengeSolution + " " + strconv.FormatInt(recipient, 10) + " " + text
}
