// Package storage keeps recorded runs on disk, one directory per run holding
// metadata.json and telemetry.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/sim"
	"github.com/san-kum/balancer/internal/task"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Preset      string             `json:"preset,omitempty"`
	Controller  string             `json:"controller"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Period      float64            `json:"period"`
	Duration    float64            `json:"duration"`
	InitialTilt float64            `json:"initial_tilt"`
	Params      map[string]float64 `json:"params,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	Fell        bool               `json:"fell"`
	FellAt      float64            `json:"fell_at,omitempty"`
	Skipped     int                `json:"skipped"`
}

var header = []string{
	"time", "tilt", "tilt_rate", "position", "velocity",
	"error", "error_derivative", "left", "right", "outcome",
}

// Save writes a run and returns its ID. ID, Timestamp, Metrics and the fall
// fields of meta are filled in from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = xid.New().String()
	meta.Timestamp = time.Now()
	meta.Metrics = result.Metrics
	meta.Fell = result.Fell
	meta.FellAt = result.FellAt
	meta.Skipped = result.Skipped

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "telemetry.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteCSV writes samples in the telemetry.csv layout.
func WriteCSV(out io.Writer, samples []sim.Sample) error {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, smp := range samples {
		row := []string{
			f(smp.Time),
			f(smp.Tilt),
			f(smp.TiltRate),
			f(smp.Position),
			f(smp.Velocity),
			f(float64(smp.Telemetry.Error)),
			f(float64(smp.Telemetry.ErrorDerivative)),
			strconv.Itoa(int(smp.Command.Left)),
			strconv.Itoa(int(smp.Command.Right)),
			smp.Outcome.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns all runs, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSamples reads the telemetry of a run. Rows that fail to parse are
// skipped.
func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "telemetry.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		smp, ok := parseRow(rec)
		if !ok {
			continue
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

func parseRow(rec []string) (sim.Sample, bool) {
	if len(rec) != len(header) {
		return sim.Sample{}, false
	}

	var v [7]float64
	for i := range v {
		f, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return sim.Sample{}, false
		}
		v[i] = f
	}
	left, err := strconv.ParseInt(rec[7], 10, 16)
	if err != nil {
		return sim.Sample{}, false
	}
	right, err := strconv.ParseInt(rec[8], 10, 16)
	if err != nil {
		return sim.Sample{}, false
	}
	outcome, ok := parseOutcome(rec[9])
	if !ok {
		return sim.Sample{}, false
	}

	return sim.Sample{
		Time:     v[0],
		Tilt:     v[1],
		TiltRate: v[2],
		Position: v[3],
		Velocity: v[4],
		Telemetry: dynamo.Telemetry{
			Error:           float32(v[5]),
			ErrorDerivative: float32(v[6]),
			Time:            float32(v[0]),
		},
		Command: dynamo.MotorCommand{Left: int16(left), Right: int16(right)},
		Outcome: outcome,
	}, true
}

func parseOutcome(s string) (task.Outcome, bool) {
	for _, o := range []task.Outcome{task.Commanded, task.SensorFault, task.InvalidDuty, task.MotorFault} {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}
