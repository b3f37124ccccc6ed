// Package export writes recorded runs in formats other tools understand.
package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/balancer/internal/sim"
	"github.com/san-kum/balancer/internal/storage"
)

type ExportData struct {
	Run     storage.RunMetadata `json:"run"`
	Steps   int                 `json:"steps"`
	Samples []Point             `json:"samples"`
}

type Point struct {
	Time            float64 `json:"t"`
	Tilt            float64 `json:"tilt"`
	TiltRate        float64 `json:"tilt_rate"`
	Position        float64 `json:"position"`
	Error           float32 `json:"error"`
	ErrorDerivative float32 `json:"error_derivative"`
	Left            int16   `json:"left"`
	Right           int16   `json:"right"`
	Outcome         string  `json:"outcome"`
}

func JSON(w io.Writer, meta storage.RunMetadata, samples []sim.Sample) error {
	data := ExportData{
		Run:     meta,
		Steps:   len(samples),
		Samples: make([]Point, len(samples)),
	}
	for i, s := range samples {
		data.Samples[i] = Point{
			Time:            s.Time,
			Tilt:            s.Tilt,
			TiltRate:        s.TiltRate,
			Position:        s.Position,
			Error:           s.Telemetry.Error,
			ErrorDerivative: s.Telemetry.ErrorDerivative,
			Left:            s.Command.Left,
			Right:           s.Command.Right,
			Outcome:         s.Outcome.String(),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
