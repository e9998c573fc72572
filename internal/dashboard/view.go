package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/Guliveer/devdash/internal/models"
)

// Smoother eases displayed values towards their targets so bars do not
// jump between samples. The zero value is ready to use; it is not safe for
// concurrent use.
type Smoother struct {
	values map[string]float64
}

// smoothingFactor is the fraction of the remaining distance covered after dt.
func smoothingFactor(dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-8*dt.Seconds())
}

// Step moves key towards target by one frame of length dt and returns the
// displayed value. A key seen for the first time starts at target.
func (s *Smoother) Step(key string, target float64, dt time.Duration) float64 {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	cur, ok := s.values[key]
	if !ok {
		s.values[key] = target
		return target
	}
	cur += (target - cur) * smoothingFactor(dt)
	s.values[key] = cur
	return cur
}

// Value returns the displayed value of key.
func (s *Smoother) Value(key string) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// ScaleBytes returns b in the largest base-1024 unit it reaches, up to TB.
func ScaleBytes(b uint64) (float64, string) {
	v := float64(b)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return v, byteUnits[unit]
}

// FormatBytes formats b as "12.3 GB". Bytes are printed without decimals.
func FormatBytes(b uint64) string {
	v, unit := ScaleBytes(b)
	if unit == "B" {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

// FormatRate formats a per-second byte rate.
func FormatRate(perSecond float64) string {
	if perSecond < 0 || math.IsNaN(perSecond) {
		perSecond = 0
	}
	return FormatBytes(uint64(perSecond)) + "/s"
}

// HealthLabel is the status text shown next to a source.
func HealthLabel(r models.Reading) string {
	switch {
	case r.IsZero():
		return "waiting"
	case r.Health == models.HealthOk:
		return "ok"
	case r.Health == models.HealthStale:
		return "stale"
	default:
		return "unavailable"
	}
}

// Age formats how long ago a reading was captured.
func Age(r models.Reading, now time.Time) string {
	if r.IsZero() {
		return "-"
	}
	d := now.Sub(r.CapturedAt)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

// JobLabel summarises a job's state for a status line.
func JobLabel(j models.InstallJob) string {
	switch j.State {
	case models.JobDownloading:
		if j.Indeterminate {
			return "downloading " + FormatBytes(uint64(max(j.BytesReceived, 0)))
		}
		return fmt.Sprintf("downloading %.0f%%", j.Progress*100)
	case models.JobFailed:
		if j.Failure != nil {
			return "failed (" + j.Failure.String() + ")"
		}
		return "failed"
	default:
		return j.State.String()
	}
}

// FormatUptime formats a duration as "3d 4h 5m".
func FormatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
