package chaterr

import "strings"

// ClassifyBillingMessage maps the server's human-readable 403 message to a
// BillingKind by substring matching. The backend does not emit structured
// billing codes, so this is the single place that must change if the server
// message wording (or locale) changes. Unrecognized wording defaults to
// BillingCancelled, the most conservative gate.
func ClassifyBillingMessage(msg string) BillingKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "trial") && strings.Contains(lower, "expired"):
		return BillingTrialExpired
	case strings.Contains(lower, "trial") && (strings.Contains(lower, "limit") || strings.Contains(lower, "quota")):
		return BillingTrialLimit
	case strings.Contains(lower, "limite") && strings.Contains(lower, "prova"):
		// Italian deployment wording for the trial message limit.
		return BillingTrialLimit
	case strings.Contains(lower, "prova") && (strings.Contains(lower, "scadut") || strings.Contains(lower, "terminat")):
		return BillingTrialExpired
	default:
		return BillingCancelled
	}
}
