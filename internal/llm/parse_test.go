package llm

import (
	"errors"
	"testing"
)

func TestParseResponsePipeline(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKey  string
		wantVal  any
		wantConf float64
		wantErr  bool
	}{
		{
			name:     "plain json",
			raw:      `{"gate_open": true, "confidence": 0.92}`,
			wantKey:  "gate_open",
			wantVal:  true,
			wantConf: 0.92,
		},
		{
			name:     "json code fence",
			raw:      "```json\n{\"water_level\": \"LOW\", \"confidence\": 0.7}\n```",
			wantKey:  "water_level",
			wantVal:  "LOW",
			wantConf: 0.7,
		},
		{
			name:     "bare code fence",
			raw:      "```\n{\"feed_level\": \"FULL\"}\n```",
			wantKey:  "feed_level",
			wantVal:  "FULL",
			wantConf: DefaultConfidence,
		},
		{
			name:     "prose around object",
			raw:      "Sure! Here is my answer: {\"gate_visible\": false, \"note\": \"brace } in string\"} Hope it helps.",
			wantKey:  "note",
			wantVal:  "brace } in string",
			wantConf: DefaultConfidence,
		},
		{
			name:     "string confidence percent",
			raw:      `{"conclusion": "deer", "confidence": "85%"}`,
			wantKey:  "conclusion",
			wantVal:  "deer",
			wantConf: 0.85,
		},
		{
			name:     "confidence out of range is clamped",
			raw:      `{"conclusion": "deer", "confidence": 250}`,
			wantKey:  "conclusion",
			wantVal:  "deer",
			wantConf: 1,
		},
		{
			name:     "unparseable",
			raw:      "I cannot determine that from the image.",
			wantKey:  "error",
			wantVal:  "unparseable",
			wantConf: 0,
			wantErr:  true,
		},
		{
			name:     "broken object",
			raw:      `{"gate_open": tru`,
			wantKey:  "raw",
			wantVal:  `{"gate_open": tru`,
			wantConf: 0,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			data, conf, err := ParseResponse(tt.raw)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnparseable) {
				t.Fatalf("expected ErrUnparseable, got %v", err)
			}
			if data[tt.wantKey] != tt.wantVal {
				t.Fatalf("data[%q] = %v, want %v", tt.wantKey, data[tt.wantKey], tt.wantVal)
			}
			if conf != tt.wantConf {
				t.Fatalf("confidence = %v, want %v", conf, tt.wantConf)
			}
		})
	}
}

func TestFirstObjectSpanSkipsUnbalancedPrefix(t *testing.T) {
	span, ok := firstObjectSpan(`{ oops {"a": {"b": 1}} trailing`)
	if !ok {
		t.Fatalf("expected span")
	}
	if span != `{"a": {"b": 1}}` {
		t.Fatalf("unexpected span %q", span)
	}
}

func TestFromResponseTotalsTokens(t *testing.T) {
	in, out := 120, 40
	res := FromResponse(ProviderOpenAI, "gpt-4o-mini", `{"confidence": 0.6}`, Usage{InputTokens: &in, OutputTokens: &out}, 0)
	if !res.OK() {
		t.Fatalf("unexpected error %v", res.Err)
	}
	if res.TotalTokens != 160 {
		t.Fatalf("expected 160 total tokens, got %d", res.TotalTokens)
	}

	failed := Failed(ProviderGemini, "gemini-1.5-flash", errors.New("timeout"), 0)
	if failed.OK() || failed.Confidence != 0 || failed.Data["error"] != "provider_error" {
		t.Fatalf("unexpected failed result %+v", failed)
	}
}
