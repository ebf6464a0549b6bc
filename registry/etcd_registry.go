// etcd-backed implementation of the Registry interface.
//
//	Key:   /sui-rpc/nodes/{network}/{url}
//	Value: JSON-encoded Endpoint
//
// Registration uses TTL leases: a node that crashes stops renewing its lease
// and the entry disappears on its own, so clients never discover ghosts.
package registry

import (
	"context"
	"encoding/json"
	"net/url"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/sui-rpc/nodes/"

// EtcdRegistry implements Registry using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register stores the endpoint under a TTL lease and keeps renewing it in
// the background until the registry is closed.
func (r *EtcdRegistry) Register(network string, endpoint Endpoint, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(endpoint)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, key(network, endpoint.URL), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes the endpoint entry.
func (r *EtcdRegistry) Deregister(network string, endpointURL string) error {
	_, err := r.client.Delete(context.TODO(), key(network, endpointURL))
	return err
}

// Discover lists the registered endpoints for a network.
func (r *EtcdRegistry) Discover(network string) ([]Endpoint, error) {
	resp, err := r.client.Get(context.TODO(), keyPrefix+network+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Watch re-fetches the full endpoint list on every change under the network
// prefix. Simpler than folding individual watch events into local state.
// Canceling ctx (or closing the registry) stops the watch and closes the
// returned channel, so the goroutine never outlives its consumer.
func (r *EtcdRegistry) Watch(ctx context.Context, network string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, keyPrefix+network+"/", clientv3.WithPrefix())
		for resp := range watchChan {
			if resp.Canceled {
				return
			}
			endpoints, err := r.Discover(network)
			if err != nil {
				continue
			}
			select {
			case ch <- endpoints:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}

func key(network, endpointURL string) string {
	return keyPrefix + network + "/" + url.PathEscape(endpointURL)
}
