// Package discovery resolves a game name to one or more candidate
// endpoints, per spec §6 "Endpoint discovery". It is an external
// collaborator: the session consumes a Client, never a concrete transport.
package discovery

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
)

// Endpoint is a resolved connection target, grounded in
// original_source/csrc/Source/Discovery/DiscoveredUserManager.h: a
// user-manager class tag plus a host/port pair and any server-supplied
// parameters.
type Endpoint struct {
	ClassName string
	Host      string
	Port      int
	Params    map[string]string
}

// ErrNoMatchingEndpoint is returned when a resolver has no endpoint for
// the requested class name.
var ErrNoMatchingEndpoint = errors.New("discovery: no endpoint matches the requested class name")

// Client resolves a game name to its available endpoints. Implementations
// are not required to be safe for concurrent use.
type Client interface {
	Resolve(ctx context.Context, gameName string) ([]Endpoint, error)
}

// SelectionPolicy narrows a resolved endpoint list for one class name down
// to a single choice (spec §4.4 "Connect algorithm": "policy is
// pluggable").
type SelectionPolicy func(candidates []Endpoint) (Endpoint, error)

// UniformRandom is the default selection policy: a uniform random pick
// among the candidates. It is deterministic only insofar as its caller
// controls math/rand's global source.
func UniformRandom(candidates []Endpoint) (Endpoint, error) {
	if len(candidates) == 0 {
		return Endpoint{}, errors.WithStack(ErrNoMatchingEndpoint)
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// Select filters endpoints by className and applies policy to the result.
// A nil policy defaults to UniformRandom.
func Select(endpoints []Endpoint, className string, policy SelectionPolicy) (Endpoint, error) {
	if policy == nil {
		policy = UniformRandom
	}
	var candidates []Endpoint
	for _, ep := range endpoints {
		if ep.ClassName == className {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return Endpoint{}, errors.Wrapf(ErrNoMatchingEndpoint, "class %q", className)
	}
	return policy(candidates)
}
