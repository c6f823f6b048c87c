package analysis

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Type tags what a config asks the model to classify.
type Type string

const (
	TypeGateDetection Type = "gate_detection"
	TypeWaterLevel    Type = "water_level"
	TypeFeedBin       Type = "feed_bin"
)

// ParseType never fails: names other than the known types become custom types.
func ParseType(raw string) Type {
	return Type(strings.ToLower(strings.TrimSpace(raw)))
}

// IsCustom reports whether t has no dedicated finding shape.
func (t Type) IsCustom() bool {
	switch t {
	case TypeGateDetection, TypeWaterLevel, TypeFeedBin:
		return false
	default:
		return true
	}
}

// Finding is the typed view of a model's parsed answer for one analysis type.
type Finding interface {
	Type() Type
	// Agrees reports whether two findings reach the same conclusion.
	Agrees(other Finding) bool
	// Alerting reports whether the finding describes a condition worth an alert.
	Alerting() bool
}

// GateFinding is the answer shape for gate_detection.
type GateFinding struct {
	GateVisible *bool `json:"gate_visible"`
	GateOpen    *bool `json:"gate_open"`
}

func (GateFinding) Type() Type { return TypeGateDetection }

func (f GateFinding) Agrees(other Finding) bool {
	o, ok := other.(GateFinding)
	if !ok {
		return false
	}
	return equalBool(f.GateVisible, o.GateVisible) && equalBool(f.GateOpen, o.GateOpen)
}

func (f GateFinding) Alerting() bool {
	return isTrue(f.GateVisible) && isTrue(f.GateOpen)
}

// LevelFinding is the answer shape for water_level and feed_bin.
// Percentage is the model's fill estimate (0-100) when it gave one.
type LevelFinding struct {
	Kind       Type
	Level      string
	Percentage *float64
}

var alertLevels = map[string]bool{"LOW": true, "EMPTY": true}

func (f LevelFinding) Type() Type { return f.Kind }

func (f LevelFinding) Agrees(other Finding) bool {
	o, ok := other.(LevelFinding)
	if !ok || o.Kind != f.Kind {
		return false
	}
	return normalizeLevel(f.Level) == normalizeLevel(o.Level)
}

func (f LevelFinding) Alerting() bool {
	return alertLevels[normalizeLevel(f.Level)]
}

// CustomFinding holds answers for types without a dedicated shape.
type CustomFinding struct {
	Kind           Type           `json:"-"`
	Conclusion     any            `json:"conclusion"`
	AlertCondition bool           `json:"alert_condition"`
	AlertMessage   string         `json:"alert_message"`
	Data           map[string]any `json:"-"`
}

func (f CustomFinding) Type() Type { return f.Kind }

func (f CustomFinding) Agrees(other Finding) bool {
	o, ok := other.(CustomFinding)
	if !ok {
		return false
	}
	return sameValue(f.Conclusion, o.Conclusion)
}

func (f CustomFinding) Alerting() bool {
	return f.AlertCondition
}

// DecodeFinding builds the typed finding for t from a parsed model answer.
// Fields that fail to coerce are left unset and reported in the error; the
// returned finding is always usable.
func DecodeFinding(t Type, data map[string]any) (Finding, error) {
	switch t {
	case TypeGateDetection:
		var f GateFinding
		err := decodeInto(data, &f)
		return f, err
	case TypeWaterLevel, TypeFeedBin:
		var raw struct {
			WaterLevel string   `json:"water_level"`
			FeedLevel  string   `json:"feed_level"`
			Percentage *float64 `json:"percentage_estimate"`
		}
		err := decodeInto(data, &raw)
		level := raw.WaterLevel
		if t == TypeFeedBin {
			level = raw.FeedLevel
		}
		return LevelFinding{Kind: t, Level: level, Percentage: raw.Percentage}, err
	default:
		f := CustomFinding{Kind: t, Data: data}
		err := decodeInto(data, &f)
		f.Kind = t
		f.Data = data
		return f, err
	}
}

// Agree decodes both answers as t and applies the type's agreement predicate.
func Agree(t Type, a, b map[string]any) bool {
	fa, _ := DecodeFinding(t, a)
	fb, _ := DecodeFinding(t, b)
	return fa.Agrees(fb)
}

func decodeInto(data map[string]any, out any) error {
	if data == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("finding decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decode finding: %w", err)
	}
	return nil
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func normalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}

// sameValue compares JSON-decoded values. Numbers compare by value and strings
// ignore case and surrounding space.
func sameValue(a, b any) bool {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.EqualFold(strings.TrimSpace(sa), strings.TrimSpace(sb))
		}
	}
	return reflect.DeepEqual(a, b)
}
