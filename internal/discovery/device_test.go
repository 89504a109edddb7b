package discovery

import (
	"testing"
)

func TestBridge_String(t *testing.T) {
	bridge := &Bridge{
		Instance: "Bestway Spa",
		DeviceID: "abc123",
		IP:       "192.168.4.16",
		Port:     8089,
	}

	expected := "Bestway Spa (spa abc123) at 192.168.4.16:8089"
	if bridge.String() != expected {
		t.Errorf("Bridge.String() = %v, want %v", bridge.String(), expected)
	}
}

func TestBridge_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		bridge   *Bridge
		expected string
	}{
		{
			name:     "IPv4",
			bridge:   &Bridge{IP: "192.168.4.16", Port: 8089},
			expected: "http://192.168.4.16:8089",
		},
		{
			name:     "IPv6",
			bridge:   &Bridge{IP: "fe80::1", Port: 9000},
			expected: "http://[fe80::1]:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bridge.BaseURL(); got != tt.expected {
				t.Errorf("Bridge.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBridge_GetMetadata_NilMap(t *testing.T) {
	bridge := &Bridge{}
	if got := bridge.GetMetadata("device"); got != "" {
		t.Errorf("GetMetadata() on nil map = %v, want empty", got)
	}
}
