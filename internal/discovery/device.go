package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge represents a bestway-bridge instance found on the network
type Bridge struct {
	// Instance is the advertised instance name (e.g., "Bestway Spa")
	Instance string

	// Hostname is the mDNS hostname of the machine running the bridge
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was advertised
	IP string

	// Port is the bridge HTTP port
	Port int

	// DeviceID is the spa device id the bridge serves (TXT "device")
	DeviceID string

	// Version is the bridge version (TXT "version")
	Version string

	// Metadata contains every TXT record
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("%s (spa %s) at %s:%d", b.Instance, b.DeviceID, b.IP, b.Port)
}

// BaseURL returns the HTTP base URL for the bridge
func (b *Bridge) BaseURL() string {
	return "http://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
