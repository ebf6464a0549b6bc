// Package loadbalance provides strategies for picking one node endpoint from
// a discovered set.
//
//   - RoundRobin:      equal-capacity nodes
//   - WeightedRandom:  heterogeneous nodes (bias by registered weight)
package loadbalance

import "sui-rpc/registry"

// Balancer picks one endpoint from the available list. Pick must be
// goroutine-safe: it can run on every endpoint resolution.
type Balancer interface {
	Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error)

	// Name identifies the strategy in logs.
	Name() string
}
