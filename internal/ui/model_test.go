package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/models"
)

const testCatalog = `
packages:
  - id: notes
  - id: vlc
    name: VLC
    category: Media
  - id: vscode
    name: VS Code
    category: Development
  - id: mpv
    category: Media
`

type fakeDashboard struct {
	frame     dashboard.Frame
	frames    int
	requested []string
	cancelled []models.JobID
	dismissed []models.JobID
	err       error
}

func (f *fakeDashboard) Frame() dashboard.Frame {
	f.frames++
	return f.frame
}

func (f *fakeDashboard) RequestInstall(id string) (models.JobID, error) {
	f.requested = append(f.requested, id)
	return 9, f.err
}

func (f *fakeDashboard) CancelInstall(id models.JobID) error {
	f.cancelled = append(f.cancelled, id)
	return f.err
}

func (f *fakeDashboard) Dismiss(id models.JobID) error {
	f.dismissed = append(f.dismissed, id)
	return f.err
}

func newTestModel(t *testing.T, dash *fakeDashboard, smoothing bool) Model {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return New(dash, cat, Options{FrameRate: 10, Smoothing: smoothing})
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, &fakeDashboard{}, true)

	ids := make([]string, 0, len(m.packages))
	for _, p := range m.packages {
		ids = append(ids, p.ID)
	}
	// Grouped by category, "Other" last.
	assert.Equal(t, []string{"vlc", "mpv", "vscode", "notes"}, ids)
	assert.Equal(t, 100*time.Millisecond, m.interval)
	assert.Equal(t, tabMetrics, m.tab)

	p, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "vlc", p.ID)
}

func TestNewModel_DefaultFrameRate(t *testing.T) {
	m := New(&fakeDashboard{}, nil, Options{})
	assert.Equal(t, 50*time.Millisecond, m.interval)
	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestModel_FrameTickReadsController(t *testing.T) {
	dash := &fakeDashboard{}
	m := newTestModel(t, dash, false)

	next, cmd := m.Update(frameMsg(time.Now()))
	m = next.(Model)
	assert.Equal(t, 1, dash.frames)
	assert.NotNil(t, cmd, "frame schedules the next tick")
}

func TestModel_GaugesFollowSnapshot(t *testing.T) {
	dash := &fakeDashboard{}
	dash.frame.Snapshot.Readings[models.CategoryCPU] = models.Reading{
		Category: models.CategoryCPU, CapturedAt: time.Now(), CPU: &models.CPUReading{Overall: 40},
	}

	t.Run("without smoothing", func(t *testing.T) {
		m := newTestModel(t, dash, false)
		start := time.Now()
		next, _ := m.Update(frameMsg(start))
		m = next.(Model)
		assert.InDelta(t, 0.4, m.gauge("cpu", 0), 1e-9)

		dash.frame.Snapshot.Readings[models.CategoryCPU].CPU.Overall = 80
		next, _ = m.Update(frameMsg(start.Add(50 * time.Millisecond)))
		m = next.(Model)
		assert.InDelta(t, 0.8, m.gauge("cpu", 0), 1e-9)
		dash.frame.Snapshot.Readings[models.CategoryCPU].CPU.Overall = 40
	})

	t.Run("with smoothing", func(t *testing.T) {
		m := newTestModel(t, dash, true)
		start := time.Now()
		next, _ := m.Update(frameMsg(start))
		m = next.(Model)
		assert.InDelta(t, 0.4, m.gauge("cpu", 0), 1e-9)

		dash.frame.Snapshot.Readings[models.CategoryCPU] = models.Reading{
			Category: models.CategoryCPU, CapturedAt: time.Now(), CPU: &models.CPUReading{Overall: 80},
		}
		next, _ = m.Update(frameMsg(start.Add(50 * time.Millisecond)))
		m = next.(Model)
		got := m.gauge("cpu", 0)
		assert.Greater(t, got, 0.4)
		assert.Less(t, got, 0.8)
	})
}

func TestModel_TabAndNavigation(t *testing.T) {
	m := newTestModel(t, &fakeDashboard{}, true)

	// Navigation is ignored on the metrics tab.
	m = press(t, m, runes("j"))
	assert.Equal(t, 0, m.selected)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabTools, m.tab)

	m = press(t, m, runes("j"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.selected)

	for i := 0; i < 10; i++ {
		m = press(t, m, runes("j"))
	}
	assert.Equal(t, 3, m.selected, "cursor stops at the last package")

	m = press(t, m, runes("k"))
	assert.Equal(t, 2, m.selected)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabMetrics, m.tab)
}

func TestModel_InstallForwardsSelectedPackage(t *testing.T) {
	dash := &fakeDashboard{}
	m := newTestModel(t, dash, true)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"vscode"}, dash.requested)
	assert.Equal(t, "Install VS Code queued as job-9", m.Status())

	dash.err = errors.New("catalog offline")
	m = press(t, m, runes("i"))
	assert.Equal(t, "Install VS Code: catalog offline", m.Status())
}

func TestModel_CancelAndDismissUseLatestJob(t *testing.T) {
	dash := &fakeDashboard{}
	dash.frame.Jobs = []models.InstallJob{
		{ID: 1, PackageID: "vlc", State: models.JobFailed},
		{ID: 4, PackageID: "vlc", State: models.JobDownloading},
		{ID: 2, PackageID: "mpv", State: models.JobSucceeded},
	}
	m := newTestModel(t, dash, true)
	next, _ := m.Update(frameMsg(time.Now()))
	m = next.(Model)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m = press(t, m, runes("c"))
	assert.Equal(t, []models.JobID{4}, dash.cancelled)
	assert.Equal(t, "Cancelled job-4", m.Status())

	m = press(t, m, runes("j"))
	m = press(t, m, runes("d"))
	assert.Equal(t, []models.JobID{2}, dash.dismissed)

	// No job for vscode.
	m = press(t, m, runes("j"))
	m = press(t, m, runes("c"))
	assert.Len(t, dash.cancelled, 1)
	assert.Equal(t, "No install job for VS Code", m.Status())

	dash.err = errors.New("job is installing and cannot be cancelled")
	m = press(t, m, runes("k"))
	m = press(t, m, runes("k"))
	m = press(t, m, runes("c"))
	assert.Equal(t, "Cancel job-4: job is installing and cannot be cancelled", m.Status())
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeDashboard{}, true)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_HelpToggle(t *testing.T) {
	m := newTestModel(t, &fakeDashboard{}, true)
	assert.NotContains(t, m.View(), "dismiss")
	m = press(t, m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "dismiss")
}

func TestView_MetricsShowsHealth(t *testing.T) {
	dash := &fakeDashboard{}
	now := time.Now()
	dash.frame.Snapshot.Readings[models.CategoryMemory] = models.Reading{
		Category: models.CategoryMemory, CapturedAt: now, Health: models.HealthOk,
		Memory: &models.MemoryReading{Used: 4 << 30, Total: 16 << 30},
	}
	dash.frame.Snapshot.Readings[models.CategoryGPU] = models.Reading{
		Category: models.CategoryGPU, CapturedAt: now, Health: models.HealthUnavailable,
		Error: "no GPU found",
	}
	m := newTestModel(t, dash, false)
	next, _ := m.Update(frameMsg(now))
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "MEMORY")
	assert.Contains(t, view, "[ok]")
	assert.Contains(t, view, "4.0 GB / 16.0 GB")
	assert.Contains(t, view, "[unavailable]")
	assert.Contains(t, view, "no GPU found")
	assert.Contains(t, view, "[waiting]")
}

func TestView_ToolsShowsInstalledAndJobs(t *testing.T) {
	dash := &fakeDashboard{}
	dash.frame.Installed = map[string]bool{"vscode": true}
	dash.frame.Jobs = []models.InstallJob{
		{ID: 3, PackageID: "vlc", PackageName: "VLC", State: models.JobDownloading, Progress: 0.25},
	}
	m := newTestModel(t, dash, true)
	next, _ := m.Update(frameMsg(time.Now()))
	m = next.(Model)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	view := m.View()
	assert.Contains(t, view, "Media")
	assert.Contains(t, view, "✓ VS Code")
	assert.Contains(t, view, "downloading 25%")
	assert.Contains(t, view, "Installs")

	var vlcLine string
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, "> ") {
			vlcLine = line
		}
	}
	assert.Contains(t, vlcLine, "VLC", "cursor starts on the first package")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 6))
	assert.Equal(t, "abcde…", truncate("abcdefgh", 6))
	assert.Equal(t, "a", truncate("abc", 1))
}
