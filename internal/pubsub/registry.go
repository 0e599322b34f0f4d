package pubsub

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BrokerInfo is the type-erased view of a Broker used for introspection.
type BrokerInfo interface {
	Name() string
	SubscriberCount() int
	IsShutdown() bool
	Metrics() BrokerMetrics
}

// Registry tracks brokers by name.
type Registry struct {
	brokers map[string]BrokerInfo
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{brokers: make(map[string]BrokerInfo)}
}

// Register adds or replaces a broker.
func (r *Registry) Register(name string, broker BrokerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[name] = broker
}

// Get retrieves a broker by name.
func (r *Registry) Get(name string) (BrokerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.brokers[name]
	return b, ok
}

// List returns registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.brokers))
	for name := range r.brokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DebugString renders one line of metrics per broker.
func (r *Registry) DebugString() string {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "brokers=%d\n", len(names))
	for _, name := range names {
		b := r.brokers[name]
		m := b.Metrics()
		fmt.Fprintf(&sb, "  %s: subs=%d peak=%d published=%d dropped=%d shutdown=%v\n",
			name, m.SubscriberCount, m.SubscriberPeak, m.PublishCount, m.DropCount, b.IsShutdown())
	}
	return sb.String()
}
