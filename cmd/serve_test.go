package cmd

import (
	"strings"
	"testing"
)

func TestServeCmdFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	tests := []struct {
		flag string
		want string
	}{
		{"transport", "stdio"},
		{"http-addr", ":8080"},
		{"credential-mode", "explicit"},
		{"base-url", ""},
		{"disable-streaming", "false"},
		{"metrics-enabled", "true"},
		{"metrics-addr", ":9090"},
		{"debug", "false"},
	}

	for _, tt := range tests {
		f := cmd.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("flag --%s not registered", tt.flag)
			continue
		}
		if f.DefValue != tt.want {
			t.Errorf("flag --%s default = %q, want %q", tt.flag, f.DefValue, tt.want)
		}
	}
}

func TestAutodetectBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://0.0.0.0:9000"},
		{"example.internal:8080", "http://example.internal:8080"},
		{"", "http://"},
	}

	for _, tt := range tests {
		if got := autodetectBaseURL(tt.addr); got != tt.want {
			t.Errorf("autodetectBaseURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestServeCmdRejectsUnknownCredentialMode(t *testing.T) {
	cmd := newServeCmd()
	cmd.SetArgs([]string{"--credential-mode", "bogus"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for an unknown credential mode")
	}
	if !strings.Contains(err.Error(), "unsupported credential mode") {
		t.Errorf("error = %v", err)
	}
}
