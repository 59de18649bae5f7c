// Package discovery advertises the LUT server over mDNS and finds
// other instances on the local network, so grading applications can be
// pointed at a host without manual address entry.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type for OpenGradeIO LUT servers.
	ServiceType = "_opengradeio._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default timeout for instance discovery
	DefaultBrowseTimeout = 5 * time.Second
)

// Instance is one LUT server found on the local network.
type Instance struct {
	Name         string
	Hostname     string
	IP           string
	Port         int
	Metadata     map[string]string
	DiscoveredAt time.Time
}

// Addr returns the host:port dial address for the instance.
func (i *Instance) Addr() string {
	return fmt.Sprintf("%s:%d", i.IP, i.Port)
}

// Advertiser keeps an mDNS registration alive until closed.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers this server instance. The metadata map is
// published as TXT records in "key=value" form.
func Advertise(name string, port int, metadata map[string]string) (*Advertiser, error) {
	txt := make([]string, 0, len(metadata))
	for key, value := range metadata {
		txt = append(txt, key+"="+value)
	}
	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Close withdraws the registration.
func (a *Advertiser) Close() {
	a.server.Shutdown()
}

// Scanner handles mDNS instance discovery.
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultBrowseTimeout,
	}
}

// Scan discovers all LUT servers on the local network.
func (s *Scanner) Scan() ([]*Instance, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers instances with a custom context.
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	instances := make([]*Instance, 0)
	collected := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(collected)
		for entry := range entries {
			instance := parseServiceEntry(entry)
			if instance != nil {
				instances = append(instances, instance)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected

	return instances, nil
}

// parseServiceEntry converts a zeroconf service entry to an Instance.
// Returns nil for entries with no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Instance{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function with a custom timeout.
func Scan(timeout time.Duration) ([]*Instance, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}
