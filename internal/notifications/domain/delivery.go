package domain

// Outcome is the fate of one notification attempt
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeDropped Outcome = "dropped"
	OutcomeIgnored Outcome = "ignored"
)

// Outcomes lists every outcome in reporting order
var Outcomes = []Outcome{OutcomeSent, OutcomeFailed, OutcomeDropped, OutcomeIgnored}

// DeliveryStats holds the counter of each outcome
type DeliveryStats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Ignored int64 `json:"ignored"`
}

// Set stores n as the counter of o
func (s *DeliveryStats) Set(o Outcome, n int64) {
	switch o {
	case OutcomeSent:
		s.Sent = n
	case OutcomeFailed:
		s.Failed = n
	case OutcomeDropped:
		s.Dropped = n
	case OutcomeIgnored:
		s.Ignored = n
	}
}
