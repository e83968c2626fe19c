// Package relay implements the control-channel protocol between the bot
// and the out-of-process scrape worker, and drives per-recipient
// sessions from both sides of it.
package relay

// Kind tags a parsed control-channel message.
type Kind int

const (
	// KindScrapeRequest is emitted by us; seeing it inbound means the
	// line bounced around the shared channel and is ignored.
	KindScrapeRequest Kind = iota + 1
	KindChallengeRequest
	// KindChallengeSolution is likewise outbound-only.
	KindChallengeSolution
	KindTaskSucceeded
	KindTaskFailed
)

func (k Kind) String() string {
	switch k {
	case KindScrapeRequest:
		return "scrape_request"
	case KindChallengeRequest:
		return "challenge_request"
	case KindChallengeSolution:
		return "challenge_solution"
	case KindTaskSucceeded:
		return "task_succeeded"
	case KindTaskFailed:
		return "task_failed"
	default:
		return "unknown"
	}
}

// ControlMessage is one parsed control-channel line.
//
// Only the fields for the tagged Kind are set: Artifact for
// ChallengeRequest (trailing text; a photo artifact travels beside the
// line as an attachment), Solution for ChallengeSolution, Reason for
// TaskFailed.
type ControlMessage struct {
	Kind      Kind
	Recipient int64
	Artifact  string
	Solution  string
	Reason    string
}
