package main

import (
	"errors"
	"testing"

	"github.com/muurk/bestway-spa/internal/spaclient"
)

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"ON", true, false},
		{" true ", true, false},
		{"1", true, false},
		{"off", false, false},
		{"no", false, false},
		{"0", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		got, err := parseOnOff(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseOnOff(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseOnOff(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"init", "status", "set", "heat", "temp", "power", "filter", "wave", "watch", "token", "discover", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestReportedErrorUnwraps(t *testing.T) {
	inner := spaclient.NewAuthError("token", "rejected")
	err := error(&reportedError{err: inner})

	if !spaclient.IsAuthError(err) {
		t.Error("reportedError should unwrap to the API error")
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		t.Error("errors.As should find reportedError")
	}
}
