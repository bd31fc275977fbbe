package balancer

// ProviderStatus is the health classification of a registered provider.
// Unknown is the only initial state; no state is terminal. Any successful
// probe or request returns a provider to Healthy, so Failed providers
// recover on their next good health check.
type ProviderStatus int

const (
	StatusUnknown ProviderStatus = iota
	StatusHealthy
	StatusDegraded // failing, but still below the failure threshold
	StatusFailed   // at or past the threshold, excluded from selection
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its lowercase name.
func (s ProviderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
