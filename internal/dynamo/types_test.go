package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestVector3_IsValid(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name  string
		v     Vector3
		valid bool
	}{
		{"zero", Vector3{}, true},
		{"upright", Vector3{0, 0, 1}, true},
		{"NaN x", Vector3{nan, 0, 1}, false},
		{"Inf z", Vector3{0, 0, inf}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestVector3_TiltIgnoresMagnitude(t *testing.T) {
	a := Vector3{0, -0.1, 1}
	b := Vector3{0, -1, 10}
	if math.Abs(float64(a.Tilt()-b.Tilt())) > 1e-6 {
		t.Errorf("tilt depends on magnitude: %f vs %f", a.Tilt(), b.Tilt())
	}

	// zero Z must not divide by zero
	side := Vector3{0, 1, 0}
	if math.Abs(float64(side.Tilt())-math.Pi/2) > 1e-6 {
		t.Errorf("expected pi/2, got %f", side.Tilt())
	}
}

func TestTelemetryLines(t *testing.T) {
	lines := Telemetry{Error: 1, ErrorDerivative: -2, Time: 0.5}.Lines()
	want := []string{"error: 1.000e+00", "error_derivative: -2.000e+00", "time: 5.000e-01"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "sensor", Reason: "required"}
	if err.Error() != "invalid sensor: required" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ConfigError should unwrap to ErrInvalidConfig")
	}
}
