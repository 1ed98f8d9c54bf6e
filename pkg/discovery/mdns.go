package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser publishes an endpoint-controller agent via mDNS.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// AdvertiserConfig configures advertising behavior.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL overrides the record TTL when positive.
	TTL time.Duration
}

// NewAdvertiser creates an idle advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Advertise registers the agent service. A prior registration from this
// advertiser is shut down first.
func (a *Advertiser) Advertise(info AgentInfo, config AdvertiserConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := info.Port
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(config.TTL.Seconds())))
	}

	var ifaces []net.Interface
	if config.Interface != "" {
		iface, err := net.InterfaceByName(config.Interface)
		if err != nil {
			return fmt.Errorf("discovery: interface %q: %w", config.Interface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(
		info.Instance,
		ServiceType,
		Domain,
		port,
		EncodeTXT(info),
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("discovery: failed to register agent service: %w", err)
	}
	a.server = server
	return nil
}

// Shutdown stops advertising. Safe to call when idle.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// BrowseAgents discovers agents until the context ends, aggregating
// addresses by instance name. It returns everything seen within the
// timeout.
func BrowseAgents(ctx context.Context, timeout time.Duration) ([]AgentInfo, error) {
	if timeout <= 0 {
		timeout = BrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	agents := make(map[string]*AgentInfo)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				info := entryToAgent(entry)
				if info == nil {
					continue
				}
				if existing, found := agents[info.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, info.Addresses)
				} else {
					agents[info.Instance] = info
				}
			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(agents, entry.Instance)
			case <-ctx.Done():
				return
			}
		}
	}()

	err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	<-done
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("discovery: browse failed: %w", err)
	}

	out := make([]AgentInfo, 0, len(agents))
	for _, info := range agents {
		out = append(out, *info)
	}
	return out, nil
}

// entryToAgent converts a zeroconf entry, returning nil for entries whose
// TXT record does not describe an agent.
func entryToAgent(entry *zeroconf.ServiceEntry) *AgentInfo {
	role, transports, err := DecodeTXT(entry.Text)
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &AgentInfo{
		Instance:   entry.Instance,
		Role:       role,
		Transports: transports,
		Host:       entry.HostName,
		Port:       entry.Port,
		Addresses:  addrs,
	}
}

func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range incoming {
		if !seen[a] {
			existing = append(existing, a)
			seen[a] = true
		}
	}
	return existing
}
