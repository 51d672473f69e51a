package model

import "time"

// Consent is the stored open-banking consent for a company: the token pair
// issued by the banking API plus its expiry.
type Consent struct {
	Expiry       time.Time
	Company      string
	ConsentID    string
	ConsentToken string
}

// consentExpiryBuffer is how long before expiry a consent is already
// treated as stale, so a running sync never crosses the expiry mid-flight.
const consentExpiryBuffer = time.Hour

// NeedsRenewal reports whether the consent is missing, expired, or within
// the renewal buffer of expiring.
func (c *Consent) NeedsRenewal(now time.Time) bool {
	if c == nil || c.ConsentToken == "" {
		return true
	}
	return now.After(c.Expiry.Add(-consentExpiryBuffer))
}
