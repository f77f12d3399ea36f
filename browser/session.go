// Package browser defines the interactive browser-session collaborator the
// auth state machine delegates to, and ships a loopback implementation for
// desktop and CLI use.
package browser

import "context"

// OutcomeKind classifies how an interactive browser session ended.
type OutcomeKind string

const (
	// OutcomeSuccess means the user completed authorization and the session
	// resolved with a callback URL.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeCancel means the user explicitly cancelled the session.
	OutcomeCancel OutcomeKind = "cancel"

	// OutcomeDismiss means the session surface was dismissed without an
	// explicit cancel (window closed, app backgrounded away).
	OutcomeDismiss OutcomeKind = "dismiss"

	// OutcomeFailure covers every other terminal condition.
	OutcomeFailure OutcomeKind = "failure"
)

// Result is the resolution of one browser session.
type Result struct {
	Kind OutcomeKind

	// CallbackURL is the full redirect URL the server sent the user back to.
	// Set only when Kind is OutcomeSuccess.
	CallbackURL string

	// Reason optionally describes a failure in human terms.
	Reason string
}

// SessionOpener opens an interactive user-facing session at authURL and
// resolves once the flow reaches redirectURI or the user gives up. The call
// may suspend indefinitely - the state machine imposes no timeout of its own,
// cancellation belongs to the opener (or the caller's ctx).
//
// Implementations must be configured once at application bootstrap by the
// composition root; the state machine only ever calls Open.
type SessionOpener interface {
	Open(ctx context.Context, authURL, redirectURI string) (*Result, error)
}
