package discovery

import "context"

// Static is an in-memory resolver that always returns the same fixed
// endpoint list, regardless of the requested game name. It is used in
// tests and by applications that already know their server topology
// (spec §6: discovery is "an external collaborator", not mandatory
// network traffic).
type Static struct {
	Endpoints []Endpoint
}

// NewStatic returns a Static resolver seeded with endpoints.
func NewStatic(endpoints ...Endpoint) *Static {
	return &Static{Endpoints: endpoints}
}

// Resolve implements Client.
func (s *Static) Resolve(ctx context.Context, gameName string) ([]Endpoint, error) {
	return s.Endpoints, nil
}
