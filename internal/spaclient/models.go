package spaclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Credentials identifies this client and the spa to the Bestway cloud.
// All fields are issued by the vendor app during pairing.
type Credentials struct {
	AppID          string `yaml:"appid" toml:"appid" json:"appid"`
	AppSecret      string `yaml:"appsecret" toml:"appsecret" json:"-"`
	DeviceID       string `yaml:"device_id" toml:"device_id" json:"device_id"`
	ProductID      string `yaml:"product_id" toml:"product_id" json:"product_id"`
	RegistrationID string `yaml:"registration_id" toml:"registration_id" json:"registration_id"`
	VisitorID      string `yaml:"visitor_id" toml:"visitor_id" json:"visitor_id"`
	ClientID       string `yaml:"client_id" toml:"client_id" json:"client_id"`
}

// Validate reports every required field that is empty.
func (c Credentials) Validate() error {
	var missing []string
	fields := []struct {
		name, value string
	}{
		{"appid", c.AppID},
		{"appsecret", c.AppSecret},
		{"device_id", c.DeviceID},
		{"product_id", c.ProductID},
		{"registration_id", c.RegistrationID},
		{"visitor_id", c.VisitorID},
		{"client_id", c.ClientID},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Snapshot is the full key/value state of the spa as reported by the
// thing_shadow endpoint. A Snapshot is immutable; With returns a copy.
type Snapshot struct {
	values map[string]any
}

// NewSnapshot creates a snapshot holding a copy of values.
func NewSnapshot(values map[string]any) Snapshot {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Snapshot{values: cp}
}

// IsZero reports whether the snapshot has never been populated.
func (s Snapshot) IsZero() bool {
	return s.values == nil
}

// Len returns the number of keys.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Keys returns the keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw value stored under key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Int returns the value under key as an integer. ok is false when the key is
// absent or not a whole number.
func (s Snapshot) Int(key string) (int, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return int(f), true
		}
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int64(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Float returns the value under key as a float64.
func (s Snapshot) Float(key string) (float64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// With returns a copy of the snapshot with key set to value.
func (s Snapshot) With(key string, value any) Snapshot {
	cp := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		cp[k] = v
	}
	cp[key] = value
	return Snapshot{values: cp}
}

// Map returns a copy of the underlying values.
func (s Snapshot) Map() map[string]any {
	cp := make(map[string]any, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return cp
}

// MarshalJSON encodes the snapshot as a plain JSON object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}

// UnmarshalJSON decodes a JSON object, preserving numbers as json.Number.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	values, err := decodeObject(data)
	if err != nil {
		return err
	}
	s.values = values
	return nil
}

// CommandResponse is the decoded reply of the command endpoint.
type CommandResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Raw is the undecoded response body
	Raw []byte `json:"-"`
}

// envelope is the common shape of every vendor API response. Pointer and raw
// fields distinguish "absent" from zero values.
type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) unauthorized() bool {
	return e.Code != nil && *e.Code == CodeUnauthorized
}

func (e *envelope) hasData() bool {
	d := strings.TrimSpace(string(e.Data))
	return d != "" && d != "null"
}

type visitorData struct {
	Token *string `json:"token"`
}

// visitorRequest is the fixed registration payload for token issuance.
type visitorRequest struct {
	AppID                 string `json:"app_id"`
	Brand                 string `json:"brand"`
	ClientID              string `json:"client_id"`
	LanCode               string `json:"lan_code"`
	Location              string `json:"location"`
	MarketingNotification int    `json:"marketing_notification"`
	PushType              string `json:"push_type"`
	RegistrationID        string `json:"registration_id"`
	Timezone              string `json:"timezone"`
	VisitorID             string `json:"visitor_id"`
}

type deviceRequest struct {
	DeviceID  string `json:"device_id"`
	ProductID string `json:"product_id"`
}

type commandRequest struct {
	DeviceID  string `json:"device_id"`
	ProductID string `json:"product_id"`
	Desired   string `json:"desired"`
}

// desiredState is JSON-encoded into commandRequest.Desired as a string.
type desiredState struct {
	State struct {
		Desired map[string]int `json:"desired"`
	} `json:"state"`
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return values, nil
}
