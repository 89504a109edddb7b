package spa

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muurk/bestway-spa/internal/spaclient"
)

// Snapshot keys reported by the thing_shadow endpoint
const (
	KeyWaterTemperature  = "water_temperature"
	KeyTargetTemperature = "temperature_setting"
	KeyHeaterState       = "heater_state"
	KeyPowerState        = "power_state"
	KeyFilterState       = "filter_state"
	KeyWaveState         = "wave_state"
	KeyErrorCode         = "error_code"
)

// Raw heater_state values
const (
	HeaterStateOff     = 0
	HeaterStateHeating = 2
	HeaterStatePassive = 4
)

// Target temperature limits in °C
const (
	MinTemp = 1
	MaxTemp = 40
)

// HeaterMode is the tri-state interpretation of heater_state
type HeaterMode int

const (
	HeaterOff HeaterMode = iota
	HeaterHeating
	HeaterIdle // heater enabled, water at temperature
)

// String returns the mode name used in output and the bridge API
func (m HeaterMode) String() string {
	switch m {
	case HeaterOff:
		return "off"
	case HeaterHeating:
		return "heating"
	case HeaterIdle:
		return "idle"
	default:
		return fmt.Sprintf("HeaterMode(%d)", int(m))
	}
}

// MarshalText lets HeaterMode appear as a string in JSON
func (m HeaterMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Enabled reports whether the heater is switched on (heating or idle)
func (m HeaterMode) Enabled() bool {
	return m != HeaterOff
}

// HeaterModeFromState maps a raw heater_state value. Only 2 is heating and
// only 4 is idle; absent and unknown values are off.
func HeaterModeFromState(state int, present bool) HeaterMode {
	if !present {
		return HeaterOff
	}
	switch state {
	case HeaterStateHeating:
		return HeaterHeating
	case HeaterStatePassive:
		return HeaterIdle
	default:
		return HeaterOff
	}
}

// HeaterStateValue returns the heater_state value to send for on/off
func HeaterStateValue(on bool) int {
	if on {
		return HeaterStateHeating
	}
	return HeaterStateOff
}

// SwitchValue returns the value to send for a pump/power switch
func SwitchValue(on bool) int {
	if on {
		return 1
	}
	return 0
}

// switches maps switch names to their snapshot keys
var switches = map[string]string{
	"power":  KeyPowerState,
	"filter": KeyFilterState,
	"wave":   KeyWaveState,
}

// SwitchKey returns the snapshot key for a named switch (power, filter, wave)
func SwitchKey(name string) (string, error) {
	key, ok := switches[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown switch %q (want one of: %s)", name, strings.Join(SwitchNames(), ", "))
	}
	return key, nil
}

// SwitchNames returns the known switch names in sorted order
func SwitchNames() []string {
	names := make([]string, 0, len(switches))
	for name := range switches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTemperature checks a target temperature against MinTemp..MaxTemp
func ValidateTemperature(celsius int) error {
	if celsius < MinTemp || celsius > MaxTemp {
		return fmt.Errorf("temperature %d°C out of range (%d-%d)", celsius, MinTemp, MaxTemp)
	}
	return nil
}

// Status is the typed view of a snapshot
type Status struct {
	WaterTemperature  *int       `json:"water_temperature,omitempty"`
	TargetTemperature *int       `json:"target_temperature,omitempty"`
	Heater            HeaterMode `json:"heater"`
	HeaterEnabled     bool       `json:"heater_enabled"` // any non-zero heater_state
	Power             bool       `json:"power"`
	Filter            bool       `json:"filter"`
	Wave              bool       `json:"wave"`
	ErrorCode         *int       `json:"error_code,omitempty"`
}

// StatusFromSnapshot derives the typed status. Missing keys leave optional
// fields nil and switches off.
func StatusFromSnapshot(snap spaclient.Snapshot) Status {
	var st Status

	if v, ok := snap.Int(KeyWaterTemperature); ok {
		st.WaterTemperature = &v
	}
	if v, ok := snap.Int(KeyTargetTemperature); ok {
		st.TargetTemperature = &v
	}

	heater, ok := snap.Int(KeyHeaterState)
	st.Heater = HeaterModeFromState(heater, ok)
	st.HeaterEnabled = ok && heater != HeaterStateOff

	st.Power = switchOn(snap, KeyPowerState)
	st.Filter = switchOn(snap, KeyFilterState)
	st.Wave = switchOn(snap, KeyWaveState)

	if v, ok := snap.Int(KeyErrorCode); ok {
		st.ErrorCode = &v
	}
	return st
}

// HasError reports whether the spa reports a non-zero error code
func (s Status) HasError() bool {
	return s.ErrorCode != nil && *s.ErrorCode != 0
}

func switchOn(snap spaclient.Snapshot, key string) bool {
	v, ok := snap.Int(key)
	return ok && v != 0
}
