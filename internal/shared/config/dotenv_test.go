package config

import "testing"

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line   string
		key    string
		val    string
		wantOK bool
	}{
		{line: "BATCH_SIZE=5", key: "BATCH_SIZE", val: "5", wantOK: true},
		{line: `export OPENAI_API_KEY="sk-test"`, key: "OPENAI_API_KEY", val: "sk-test", wantOK: true},
		{line: "  DRY_RUN = 'true' ", key: "DRY_RUN", val: "true", wantOK: true},
		{line: "# comment", wantOK: false},
		{line: "", wantOK: false},
		{line: "NOVALUE", wantOK: false},
		{line: "=orphan", wantOK: false},
	}

	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.wantOK {
			t.Fatalf("parseEnvLine(%q) ok=%v, want %v", tt.line, ok, tt.wantOK)
		}
		if ok && (key != tt.key || val != tt.val) {
			t.Fatalf("parseEnvLine(%q) = %q,%q, want %q,%q", tt.line, key, val, tt.key, tt.val)
		}
	}
}
