// Package ui is the terminal dashboard. It renders controller frames at a
// fixed rate and turns key presses into install commands.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/models"
)

// Dashboard is the controller surface the UI drives.
type Dashboard interface {
	Frame() dashboard.Frame
	RequestInstall(packageID string) (models.JobID, error)
	CancelInstall(id models.JobID) error
	Dismiss(id models.JobID) error
}

type tab int

const (
	tabMetrics tab = iota
	tabTools
)

// frameMsg triggers a redraw from a fresh frame.
type frameMsg time.Time

// Options configures the model.
type Options struct {
	FrameRate int
	Smoothing bool
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	dash     Dashboard
	packages []catalog.Package

	frame     dashboard.Frame
	smoother  dashboard.Smoother
	smoothing bool
	interval  time.Duration
	lastFrame time.Time
	now       func() time.Time

	bar      progress.Model
	tab      tab
	selected int
	showHelp bool
	status   string
	width    int
	height   int
}

// New creates a Model. Packages are listed grouped by category.
func New(dash Dashboard, cat *catalog.Catalog, opts Options) Model {
	rate := opts.FrameRate
	if rate <= 0 {
		rate = 20
	}
	var pkgs []catalog.Package
	if cat != nil {
		for _, c := range cat.Categories() {
			pkgs = append(pkgs, cat.ByCategory(c)...)
		}
	}
	return Model{
		dash:      dash,
		packages:  pkgs,
		smoothing: opts.Smoothing,
		interval:  time.Second / time.Duration(rate),
		now:       time.Now,
		bar: progress.New(
			progress.WithGradient(ColorBarEmpty, ColorBarFilled),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		width: 80,
	}
}

// Init starts the frame ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// refresh pulls a frame immediately.
func (m Model) refresh() tea.Msg {
	return frameMsg(m.now())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(40, msg.Width/3))
		return m, nil

	case frameMsg:
		m.applyFrame(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyFrame(at time.Time) {
	m.frame = m.dash.Frame()
	dt := time.Duration(0)
	if !m.lastFrame.IsZero() {
		dt = at.Sub(m.lastFrame)
	}
	m.lastFrame = at

	for name, target := range gaugeTargets(&m.frame.Snapshot) {
		if m.smoothing {
			m.smoother.Step(name, target, dt)
		} else {
			m.smoother.Step(name, target, time.Hour)
		}
	}
}

// gauge returns the displayed value of a bar in [0,1].
func (m Model) gauge(name string, target float64) float64 {
	if v, ok := m.smoother.Value(name); ok {
		return v
	}
	return target
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, keys.Tab):
		if m.tab == tabMetrics {
			m.tab = tabTools
		} else {
			m.tab = tabMetrics
		}
		return m, nil
	}

	if m.tab != tabTools || len(m.packages) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.packages)-1 {
			m.selected++
		}
	case key.Matches(msg, keys.Install):
		m.install()
	case key.Matches(msg, keys.Cancel):
		m.cancel()
	case key.Matches(msg, keys.Dismiss):
		m.dismiss()
	}
	return m, nil
}

func (m *Model) install() {
	pkg := m.packages[m.selected]
	id, err := m.dash.RequestInstall(pkg.ID)
	if err != nil {
		m.status = "Install " + pkg.Name + ": " + err.Error()
		return
	}
	m.status = "Install " + pkg.Name + " queued as " + id.String()
}

func (m *Model) cancel() {
	j, ok := m.latestJob(m.packages[m.selected].ID)
	if !ok {
		m.status = "No install job for " + m.packages[m.selected].Name
		return
	}
	if err := m.dash.CancelInstall(j.ID); err != nil {
		m.status = "Cancel " + j.ID.String() + ": " + err.Error()
		return
	}
	m.status = "Cancelled " + j.ID.String()
}

func (m *Model) dismiss() {
	j, ok := m.latestJob(m.packages[m.selected].ID)
	if !ok {
		m.status = "No install job for " + m.packages[m.selected].Name
		return
	}
	if err := m.dash.Dismiss(j.ID); err != nil {
		m.status = "Dismiss " + j.ID.String() + ": " + err.Error()
		return
	}
	m.status = "Dismissed " + j.ID.String()
}

// latestJob returns the newest job for a package in the current frame.
func (m Model) latestJob(packageID string) (models.InstallJob, bool) {
	var out models.InstallJob
	found := false
	for _, j := range m.frame.Jobs {
		if j.PackageID == packageID && (!found || j.ID > out.ID) {
			out, found = j, true
		}
	}
	return out, found
}

// Selected returns the package under the cursor.
func (m Model) Selected() (catalog.Package, bool) {
	if m.selected < 0 || m.selected >= len(m.packages) {
		return catalog.Package{}, false
	}
	return m.packages[m.selected], true
}

// Status returns the last command result line.
func (m Model) Status() string {
	return m.status
}
