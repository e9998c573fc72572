package platform

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoGPU is returned when a GPU query finds no adapter, or its tool is
// missing.
var ErrNoGPU = errors.New("no GPU found")

var smiFields = []string{
	"index",
	"name",
	"driver_version",
	"utilization.gpu",
	"memory.used",
	"memory.total",
	"temperature.gpu",
}

type nvidiaSMI struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func newNvidiaSMI() *nvidiaSMI {
	return &nvidiaSMI{
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (s *nvidiaSMI) query(ctx context.Context) ([]GPUStats, error) {
	bin, err := s.lookPath("nvidia-smi")
	if err != nil {
		return nil, ErrNoGPU
	}
	out, err := s.run(ctx, bin,
		"--query-gpu="+strings.Join(smiFields, ","),
		"--format=csv,noheader,nounits")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// nvidia-smi exits non-zero when the driver has no device.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", ErrNoGPU, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("run nvidia-smi: %w", err)
	}
	gpus, err := parseSMI(out)
	if err != nil {
		return nil, err
	}
	if len(gpus) == 0 {
		return nil, ErrNoGPU
	}
	return gpus, nil
}

// parseSMI parses `--format=csv,noheader,nounits` output for smiFields.
// Memory columns are in MiB.
func parseSMI(out []byte) ([]GPUStats, error) {
	reader := csv.NewReader(strings.NewReader(string(out)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse nvidia-smi output: %w", err)
	}

	gpus := make([]GPUStats, 0, len(rows))
	for _, row := range rows {
		if len(row) < len(smiFields) {
			continue
		}
		g := GPUStats{
			Name:        normalizeField(row[1]),
			Driver:      normalizeField(row[2]),
			Utilization: parseFloat(row[3]),
			MemoryUsed:  parseMiB(row[4]),
			MemoryTotal: parseMiB(row[5]),
		}
		g.Index, _ = strconv.Atoi(normalizeField(row[0]))
		if t, err := strconv.ParseFloat(normalizeField(row[6]), 64); err == nil {
			g.TemperatureC = &t
		}
		gpus = append(gpus, g)
	}
	return gpus, nil
}

func normalizeField(raw string) string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "n/a", "[n/a]", "[not supported]", "not supported", "unknown":
		return ""
	}
	return v
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(normalizeField(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMiB(raw string) uint64 {
	v := parseFloat(raw)
	if v <= 0 {
		return 0
	}
	return uint64(v * 1024 * 1024)
}
