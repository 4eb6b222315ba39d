package realtime

import "testing"

func TestBuildTarget(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:8000", want: "ws://localhost:8000/ws?token=abc"},
		{name: "https", base: "https://api.example.com", want: "wss://api.example.com/ws?token=abc"},
		{name: "trailing slash", base: "https://api.example.com/", want: "wss://api.example.com/ws?token=abc"},
		{name: "path prefix", base: "https://example.com/backend", want: "wss://example.com/backend/ws?token=abc"},
		{name: "already ws", base: "ws://localhost:8000", want: "ws://localhost:8000/ws?token=abc"},
		{name: "bad scheme", base: "ftp://example.com", wantErr: true},
		{name: "no host", base: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTarget(tt.base, "/ws", "token", "abc")
			if tt.wantErr {
				if err == nil {
					t.Errorf("BuildTarget(%q) expected error, got %q", tt.base, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildTarget(%q) error: %v", tt.base, err)
			}
			if got != tt.want {
				t.Errorf("BuildTarget(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestBuildTarget_EscapesCredential(t *testing.T) {
	got, err := BuildTarget("http://localhost", "/ws", "token", "a b&c")
	if err != nil {
		t.Fatalf("BuildTarget error: %v", err)
	}
	if got != "ws://localhost/ws?token=a+b%26c" {
		t.Errorf("BuildTarget = %q", got)
	}
}

func TestRedactTarget(t *testing.T) {
	got := redactTarget("wss://api.example.com/ws?token=secret", "token")
	if got != "wss://api.example.com/ws?token=REDACTED" {
		t.Errorf("redactTarget = %q", got)
	}
}
