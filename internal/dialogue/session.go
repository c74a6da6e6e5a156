package dialogue

import "time"

// Session is the per-chat state between an accepted date and the end of the flow.
// An empty CurrencyCode means the bot is waiting for a code.
type Session struct {
	Date         time.Time
	CurrencyCode string
}

// Outcome names the branch a turn took.
type Outcome string

const (
	OutcomeWelcome      Outcome = "welcome"
	OutcomeDateAccepted Outcome = "date_accepted"
	OutcomeInvalidDate  Outcome = "invalid_date"
	OutcomeReprompt     Outcome = "reprompt"
	OutcomeRateFound    Outcome = "rate_found"
	OutcomeRateNotFound Outcome = "rate_not_found"
	OutcomeLookupFailed Outcome = "lookup_failed"
	OutcomeDatePrompt   Outcome = "date_prompt"
	// OutcomeReset means an existing session was discarded by unrecognized input.
	OutcomeReset Outcome = "reset"
)

// LinkButton is a single external link shown under a reply.
type LinkButton struct {
	Text string
	URL  string
}

// Choice is a one-time keyboard with fixed options.
type Choice struct {
	Options []string
}

// Reply is one outbound message. At most one of Link and Choice is set.
type Reply struct {
	ChatID int64
	Text   string
	Link   *LinkButton
	Choice *Choice
}

// Turn is the result of handling one inbound text.
type Turn struct {
	Outcome Outcome
	Replies []Reply
	// Result is the rate or not-found text produced by this turn, if any.
	Result string
}
