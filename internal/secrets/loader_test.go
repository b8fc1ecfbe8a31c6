package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  secret-key\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	t.Setenv("BLINDMATCH_TEST_SECRET", " from-env ")

	cases := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins over value", src: Source{Name: "gemini api key", Value: "inline", File: keyFile}, want: "secret-key"},
		{name: "inline value", src: Source{Value: " inline "}, want: "inline"},
		{name: "env wins over value", src: Source{Env: "BLINDMATCH_TEST_SECRET", Value: "inline"}, want: "from-env"},
		{name: "unset env falls back to value", src: Source{Env: "BLINDMATCH_TEST_UNSET", Value: "inline"}, want: "inline"},
		{name: "missing file", src: Source{Name: "gemini api key", File: filepath.Join(dir, "nope")}, wantErr: `reading gemini api key from file`},
		{name: "empty file", src: Source{File: emptyFile}, wantErr: "secret file"},
		{name: "not configured", src: Source{Name: "gemini api key"}, wantErr: "gemini api key is not configured"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(tc.src)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
