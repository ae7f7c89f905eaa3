package ports

import "time"

// TokenInspector reads claims from an access token without verifying it.
// The result is for display only and never gates a request.
type TokenInspector interface {
	AccessExpiry(token string) (time.Time, bool)
}
