package spaclient

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCredentials_Validate(t *testing.T) {
	if err := testCredentials().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	creds := testCredentials()
	creds.AppSecret = ""
	creds.VisitorID = "  "

	err := creds.Validate()
	if err == nil {
		t.Fatal("Validate() should fail for missing fields")
	}
	if !strings.Contains(err.Error(), "appsecret") || !strings.Contains(err.Error(), "visitor_id") {
		t.Errorf("Validate() error = %v, want both missing fields named", err)
	}
}

func TestCredentials_SecretNotInJSON(t *testing.T) {
	data, err := json.Marshal(testCredentials())
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if strings.Contains(string(data), "app-secret") {
		t.Errorf("JSON leaks app secret: %s", data)
	}
}

func TestSnapshot_Accessors(t *testing.T) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(`{"water_temperature":32,"ratio":1.5,"whole":40.0,"name":"spa"}`), &snap); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if v, ok := snap.Int("water_temperature"); !ok || v != 32 {
		t.Errorf("Int(water_temperature) = %d, %v", v, ok)
	}
	if v, ok := snap.Int("whole"); !ok || v != 40 {
		t.Errorf("Int(whole) = %d, %v", v, ok)
	}
	if _, ok := snap.Int("ratio"); ok {
		t.Error("Int(ratio) should fail for 1.5")
	}
	if _, ok := snap.Int("name"); ok {
		t.Error("Int(name) should fail for a string")
	}
	if _, ok := snap.Int("missing"); ok {
		t.Error("Int(missing) should report absence")
	}
	if v, ok := snap.Float("ratio"); !ok || v != 1.5 {
		t.Errorf("Float(ratio) = %v, %v", v, ok)
	}

	keys := snap.Keys()
	if strings.Join(keys, ",") != "name,ratio,water_temperature,whole" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
}

func TestSnapshot_WithIsCopyOnWrite(t *testing.T) {
	orig := NewSnapshot(map[string]any{"heater_state": 0})
	updated := orig.With("heater_state", 2)

	if v, _ := orig.Int("heater_state"); v != 0 {
		t.Errorf("original mutated: heater_state = %d", v)
	}
	if v, _ := updated.Int("heater_state"); v != 2 {
		t.Errorf("updated heater_state = %d, want 2", v)
	}

	m := updated.Map()
	m["heater_state"] = 4
	if v, _ := updated.Int("heater_state"); v != 2 {
		t.Error("Map() must return a copy")
	}
}

func TestSnapshot_ZeroValue(t *testing.T) {
	var snap Snapshot
	if !snap.IsZero() {
		t.Error("zero Snapshot should report IsZero")
	}

	data, err := json.Marshal(snap)
	if err != nil || string(data) != "{}" {
		t.Errorf("Marshal(zero) = %s, %v; want {}", data, err)
	}

	if snap.With("power_state", 1).IsZero() {
		t.Error("With() on zero Snapshot should populate it")
	}
}

func TestSnapshot_RejectsNull(t *testing.T) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(`null`), &snap); err == nil {
		t.Error("Unmarshal(null) should fail")
	}
}
