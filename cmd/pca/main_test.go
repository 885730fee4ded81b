package main

import (
	"testing"
)

func TestServerArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		fixed   int
		wantURL string
		wantKey string
		wantErr bool
	}{
		{"none", []string{"RV0001"}, 1, "", "", false},
		{"both", []string{"RV0001", "https://gophish:3333", "key"}, 1, "https://gophish:3333", "key", false},
		{"url only", []string{"RV0001", "https://gophish:3333"}, 1, "", "", true},
		{"no fixed", []string{"https://gophish:3333", "key"}, 0, "https://gophish:3333", "key", false},
		{"no fixed empty", nil, 0, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, key, err := serverArgs(tt.args, tt.fixed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("serverArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if url != tt.wantURL || key != tt.wantKey {
				t.Errorf("serverArgs() = %q, %q, want %q, %q", url, key, tt.wantURL, tt.wantKey)
			}
		})
	}
}

func TestCounts(t *testing.T) {
	got := counts(map[string]int{"pages": 2, "campaigns": 3, "groups": 1})
	if got != "campaigns=3 groups=1 pages=2" {
		t.Errorf("counts() = %q", got)
	}
	if got := counts(nil); got != "" {
		t.Errorf("counts(nil) = %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"wizard", "reschedule", "templates", "smtp-check", "domain-check", "import", "export", "clean", "complete", "test", "history", "version"}

	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCleanFlagsCoverEveryKind(t *testing.T) {
	for _, kind := range cleanKinds {
		if cleanCmd.Flags().Lookup(string(kind)) == nil {
			t.Errorf("clean has no --%s flag", kind)
		}
	}
}
