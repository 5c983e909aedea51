package notification

import "context"

// DeliveryFailure reports a single recipient the gateway could not reach.
type DeliveryFailure struct {
	Token        string
	Reason       string
	Unregistered bool
}

// BatchResult summarizes a multi-recipient dispatch.
type BatchResult struct {
	SuccessCount int
	Failures     []DeliveryFailure
}

// Gateway abstracts the push transport. The production implementation is
// FCM; tests substitute a fake.
type Gateway interface {
	// SendOne delivers a single push. A failed delivery returns a
	// *DeliveryError describing the recipient and whether the token is
	// stale.
	SendOne(ctx context.Context, token, title, body string, data map[string]string) error
	// SendMany delivers the same push to every token, reporting
	// per-recipient failures rather than failing the batch.
	SendMany(ctx context.Context, tokens []string, title, body string, data map[string]string) (*BatchResult, error)
}

// DeliveryError is a per-recipient gateway failure. It is non-fatal to a
// sweep; callers log it and move on.
type DeliveryError struct {
	Token        string
	Reason       string
	Unregistered bool
}

func (e *DeliveryError) Error() string {
	return "push delivery failed: " + e.Reason
}
