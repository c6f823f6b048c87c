package analysis

import (
	"strings"
	"testing"
)

func TestBuildAlert(t *testing.T) {
	task := Task{ID: "task-1", ImageID: "img-1"}
	meta := ImageMetadata{ImageID: "img-1", CameraName: "North Gate", ImageURL: "https://img/1.jpg"}

	tests := []struct {
		name       string
		cfg        Config
		data       map[string]any
		confidence float64
		wantTitle  string
		wantType   string
		wantSev    string
		wantInMsg  string
	}{
		{
			name:       "gate immediate",
			cfg:        Config{ID: "c1", Name: "Gate", Type: TypeGateDetection},
			data:       map[string]any{"gate_visible": true, "gate_open": true},
			confidence: 0.95,
			wantTitle:  "Gate Open Alert - North Gate",
			wantType:   AlertTypeImmediate,
			wantSev:    SeverityCritical,
			wantInMsg:  "95%",
		},
		{
			name:       "water warning",
			cfg:        Config{ID: "c2", Name: "Water", Type: TypeWaterLevel},
			data:       map[string]any{"water_level": "low"},
			confidence: 0.85,
			wantTitle:  "Low Water Alert - North Gate",
			wantType:   AlertTypeWarning,
			wantSev:    SeverityWarning,
			wantInMsg:  "LOW",
		},
		{
			name:       "water with percentage estimate",
			cfg:        Config{ID: "c2", Name: "Water", Type: TypeWaterLevel},
			data:       map[string]any{"water_level": "LOW", "percentage_estimate": 15},
			confidence: 0.9,
			wantTitle:  "Low Water Alert - North Gate",
			wantType:   AlertTypeWarning,
			wantSev:    SeverityWarning,
			wantInMsg:  "Water level LOW (15%)",
		},
		{
			name:       "feed boundary is warning",
			cfg:        Config{ID: "c3", Name: "Feed", Type: TypeFeedBin},
			data:       map[string]any{"feed_level": "EMPTY"},
			confidence: 0.9,
			wantTitle:  "Low Feed Alert - North Gate",
			wantType:   AlertTypeWarning,
			wantSev:    SeverityWarning,
			wantInMsg:  "EMPTY",
		},
		{
			name:       "custom uses model message",
			cfg:        Config{ID: "c4", Name: "Predators", Type: "predator_check"},
			data:       map[string]any{"alert_condition": true, "alert_message": "Coyote near calves"},
			confidence: 0.92,
			wantTitle:  "Alert - North Gate",
			wantType:   AlertTypeImmediate,
			wantSev:    SeverityCritical,
			wantInMsg:  "Coyote near calves",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			finding, err := DecodeFinding(tt.cfg.Type, tt.data)
			if err != nil {
				t.Fatalf("DecodeFinding: %v", err)
			}
			alert := BuildAlert(task, tt.cfg, meta, finding, tt.data, tt.confidence)
			if alert.Title != tt.wantTitle {
				t.Fatalf("title = %q, want %q", alert.Title, tt.wantTitle)
			}
			if alert.AlertType != tt.wantType || alert.Severity != tt.wantSev {
				t.Fatalf("type/severity = %s/%s, want %s/%s", alert.AlertType, alert.Severity, tt.wantType, tt.wantSev)
			}
			if !strings.Contains(alert.Message, tt.wantInMsg) {
				t.Fatalf("message %q missing %q", alert.Message, tt.wantInMsg)
			}
			if alert.ConfigID != tt.cfg.ID || alert.TaskID != "task-1" || alert.ImageURL != meta.ImageURL {
				t.Fatalf("unexpected linkage %+v", alert)
			}
		})
	}
}
