package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/logging"
)

const (
	// ServiceType is the mDNS service type advertised by bestway-bridge
	ServiceType = "_bestway-spa._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge discovery
	DefaultScanTimeout = 5 * time.Second

	// TXT record keys
	TXTDevice  = "device"
	TXTVersion = "version"
)

// Scanner handles mDNS bridge discovery
type Scanner struct {
	// Timeout is the maximum time to wait for bridge discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all bridges on the local network until the timeout expires
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu      sync.Mutex
		bridges = make([]*Bridge, 0)
		seen    = make(map[string]bool)
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				bridge := parseServiceEntry(entry)
				if bridge == nil {
					continue
				}
				key := fmt.Sprintf("%s:%d", bridge.IP, bridge.Port)
				mu.Lock()
				if !seen[key] {
					seen[key] = true
					bridges = append(bridges, bridge)
					logging.Debug("Discovered bridge", zap.String("bridge", bridge.String()))
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return bridges, nil
}

// parseServiceEntry converts a zeroconf service entry to a Bridge.
// Returns nil for entries without an address or without a device TXT record.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	if metadata[TXTDevice] == "" {
		return nil
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		DeviceID:     metadata[TXTDevice],
		Version:      metadata[TXTVersion],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// TXTRecords builds the TXT records advertised for a bridge
func TXTRecords(deviceID, version string) []string {
	return []string{
		TXTDevice + "=" + deviceID,
		TXTVersion + "=" + version,
	}
}

// Advertisement is a running mDNS registration
type Advertisement struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise registers the bridge on all interfaces until Shutdown is called
func Advertise(instance string, port int, deviceID, version string) (*Advertisement, error) {
	server, err := zeroconf.Register(
		instance,
		ServiceType,
		ServiceDomain,
		port,
		TXTRecords(deviceID, version),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising bridge via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement. Safe to call more than once.
func (a *Advertisement) Shutdown() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.server.Shutdown()
	})
}
