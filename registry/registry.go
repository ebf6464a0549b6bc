// Package registry provides discovery of node RPC endpoints, backed by etcd.
//
// Operators register their fullnode endpoints under a network name
// ("mainnet", "testnet", ...); clients discover the live set and pick one to
// connect to. Discovery is optional — a client constructed with a fixed
// endpoint never touches the registry.
package registry

import "context"

// Endpoint describes one registered fullnode.
type Endpoint struct {
	// URL is the base HTTP(S) endpoint of the node.
	URL string
	// Weight biases endpoint selection toward bigger nodes.
	Weight int
	// Version is the node's reported release, informational only.
	Version string
}

// Registry is the endpoint discovery interface.
type Registry interface {
	// Register announces an endpoint for a network with a TTL in seconds.
	// The entry expires automatically if the registrant stops renewing.
	Register(network string, endpoint Endpoint, ttl int64) error

	// Deregister removes an endpoint, typically during graceful shutdown.
	Deregister(network string, url string) error

	// Discover returns the currently registered endpoints for a network.
	Discover(network string) ([]Endpoint, error)

	// Watch emits the updated endpoint list whenever the set changes. The
	// channel is closed when ctx is canceled or the registry shuts down.
	Watch(ctx context.Context, network string) <-chan []Endpoint
}
