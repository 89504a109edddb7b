package spa

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/bestway-spa/internal/spaclient"
)

func TestHeaterModeFromState(t *testing.T) {
	tests := []struct {
		name    string
		state   int
		present bool
		want    HeaterMode
	}{
		{"absent", 0, false, HeaterOff},
		{"off", 0, true, HeaterOff},
		{"heating", 2, true, HeaterHeating},
		{"idle", 4, true, HeaterIdle},
		{"unknown 1", 1, true, HeaterOff},
		{"unknown 3", 3, true, HeaterOff},
		{"unknown 5", 5, true, HeaterOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeaterModeFromState(tt.state, tt.present))
		})
	}
}

func TestHeaterMode_String(t *testing.T) {
	assert.Equal(t, "off", HeaterOff.String())
	assert.Equal(t, "heating", HeaterHeating.String())
	assert.Equal(t, "idle", HeaterIdle.String())
	assert.Equal(t, "HeaterMode(7)", HeaterMode(7).String())

	assert.False(t, HeaterOff.Enabled())
	assert.True(t, HeaterIdle.Enabled())
}

func TestCommandValues(t *testing.T) {
	assert.Equal(t, 2, HeaterStateValue(true))
	assert.Equal(t, 0, HeaterStateValue(false))
	assert.Equal(t, 1, SwitchValue(true))
	assert.Equal(t, 0, SwitchValue(false))
}

func TestSwitchKey(t *testing.T) {
	key, err := SwitchKey("Power")
	require.NoError(t, err)
	assert.Equal(t, KeyPowerState, key)

	key, err = SwitchKey(" wave ")
	require.NoError(t, err)
	assert.Equal(t, KeyWaveState, key)

	_, err = SwitchKey("jets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter, power, wave")
}

func TestValidateTemperature(t *testing.T) {
	assert.NoError(t, ValidateTemperature(MinTemp))
	assert.NoError(t, ValidateTemperature(38))
	assert.NoError(t, ValidateTemperature(MaxTemp))
	assert.Error(t, ValidateTemperature(0))
	assert.Error(t, ValidateTemperature(41))
}

func TestStatusFromSnapshot(t *testing.T) {
	snap := spaclient.NewSnapshot(map[string]any{
		KeyWaterTemperature:  json.Number("32"),
		KeyTargetTemperature: json.Number("38"),
		KeyHeaterState:       json.Number("4"),
		KeyPowerState:        json.Number("1"),
		KeyFilterState:       json.Number("0"),
		KeyWaveState:         json.Number("2"),
		KeyErrorCode:         json.Number("0"),
	})

	st := StatusFromSnapshot(snap)

	require.NotNil(t, st.WaterTemperature)
	assert.Equal(t, 32, *st.WaterTemperature)
	require.NotNil(t, st.TargetTemperature)
	assert.Equal(t, 38, *st.TargetTemperature)
	assert.Equal(t, HeaterIdle, st.Heater)
	assert.True(t, st.Power)
	assert.False(t, st.Filter)
	assert.True(t, st.Wave, "any non-zero value is on")
	assert.False(t, st.HasError())
}

func TestStatusFromSnapshot_Empty(t *testing.T) {
	st := StatusFromSnapshot(spaclient.Snapshot{})

	assert.Nil(t, st.WaterTemperature)
	assert.Nil(t, st.TargetTemperature)
	assert.Nil(t, st.ErrorCode)
	assert.Equal(t, HeaterOff, st.Heater)
	assert.False(t, st.HeaterEnabled)
	assert.False(t, st.Power)
}

func TestStatusFromSnapshot_UnknownHeaterState(t *testing.T) {
	st := StatusFromSnapshot(spaclient.NewSnapshot(map[string]any{
		KeyHeaterState: json.Number("3"),
	}))

	assert.Equal(t, HeaterOff, st.Heater, "unknown values have no mode")
	assert.True(t, st.HeaterEnabled, "but the heater is switched on")
}

func TestStatus_JSON(t *testing.T) {
	st := StatusFromSnapshot(spaclient.NewSnapshot(map[string]any{
		KeyHeaterState: 2,
		KeyErrorCode:   5,
	}))

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"heater":"heating","heater_enabled":true,"power":false,"filter":false,"wave":false,"error_code":5}`, string(data))
	assert.True(t, st.HasError())
}
