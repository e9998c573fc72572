package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/models"
)

// gaugeTargets lists every bar in a snapshot and its target fraction.
func gaugeTargets(s *models.Snapshot) map[string]float64 {
	out := make(map[string]float64)
	if r, ok := s.Get(models.CategoryCPU); ok && r.CPU != nil {
		out["cpu"] = r.CPU.Overall / 100
	}
	if r, ok := s.Get(models.CategoryMemory); ok && r.Memory != nil {
		out["memory"] = r.Memory.UsedFraction()
	}
	if r, ok := s.Get(models.CategoryDisk); ok && r.Disk != nil {
		for _, v := range r.Disk.Volumes {
			out["disk:"+v.Mount] = v.UsedFraction()
		}
	}
	if r, ok := s.Get(models.CategoryGPU); ok && r.GPU != nil {
		out["gpu"] = r.GPU.Utilization / 100
		out["gpu.memory"] = r.GPU.MemoryFraction()
	}
	return out
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if m.tab == tabTools {
		b.WriteString(m.renderTools())
	} else {
		b.WriteString(m.renderMetrics())
	}

	if jobs := m.renderJobs(); jobs != "" {
		b.WriteString("\n")
		b.WriteString(jobs)
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTabs() string {
	metrics, tools := TabStyle.Render("Metrics"), TabStyle.Render("Tools")
	if m.tab == tabTools {
		tools = ActiveTabStyle.Render("Tools")
	} else {
		metrics = ActiveTabStyle.Render("Metrics")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, HeaderStyle.Render("devdash"), metrics, tools)
}

func (m Model) renderFooter() string {
	bindings := keys.shortHelp(m.tab == tabTools)
	if m.showHelp {
		bindings = []key.Binding{keys.Tab, keys.Up, keys.Down, keys.Install, keys.Cancel, keys.Dismiss, keys.Help, keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return FooterStyle.Render(strings.Join(parts, " • "))
}

func (m Model) renderMetrics() string {
	now := m.now()
	cards := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		r := m.frame.Snapshot.Readings[c]
		cards = append(cards, m.renderCard(c, r, dashboard.Age(r, now)))
	}

	// Two cards per row when the terminal is wide enough.
	perRow := 1
	if m.width >= 100 {
		perRow = 2
	}
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCard(c models.Category, r models.Reading, age string) string {
	label := dashboard.HealthLabel(r)
	title := TitleStyle.Render(strings.ToUpper(c.String())) + " " +
		healthStyle(label).Render("["+label+"]") + " " + LabelStyle.Render(age)

	var body string
	if r.HasPayload() {
		body = m.renderPayload(r)
	} else if r.Error != "" {
		body = CriticalStyle.Render(r.Error)
	} else {
		body = LabelStyle.Render("no data")
	}
	return CardStyle.Width(m.bar.Width + 30).Render(title + "\n" + body)
}

func (m Model) renderPayload(r models.Reading) string {
	var lines []string
	switch r.Category {
	case models.CategoryCPU:
		cpu := r.CPU
		lines = append(lines, m.renderBar("usage", "cpu", cpu.Overall/100, fmt.Sprintf("%5.1f%%", cpu.Overall)))
		if cpu.Model != "" {
			lines = append(lines, field("model", cpu.Model))
		}
		lines = append(lines, field("cores", fmt.Sprintf("%d logical / %d physical", cpu.LogicalCores, cpu.PhysicalCores)))
		if cpu.Load1 > 0 {
			lines = append(lines, field("load", fmt.Sprintf("%.2f %.2f %.2f", cpu.Load1, cpu.Load5, cpu.Load15)))
		}
		if cpu.Temperature != nil {
			lines = append(lines, field("temp", fmt.Sprintf("%.0f°C", *cpu.Temperature)))
		}

	case models.CategoryMemory:
		mem := r.Memory
		lines = append(lines, m.renderBar("ram", "memory", mem.UsedFraction(),
			dashboard.FormatBytes(mem.Used)+" / "+dashboard.FormatBytes(mem.Total)))
		if mem.SwapTotal > 0 {
			lines = append(lines, field("swap", dashboard.FormatBytes(mem.SwapUsed)+" / "+dashboard.FormatBytes(mem.SwapTotal)))
		}

	case models.CategoryDisk:
		for _, v := range r.Disk.Volumes {
			lines = append(lines, m.renderBar(v.Mount, "disk:"+v.Mount, v.UsedFraction(),
				dashboard.FormatBytes(v.Free)+" free"))
		}

	case models.CategoryNetwork:
		for _, n := range r.Network.Interfaces {
			if n.Baseline {
				lines = append(lines, field(n.Name, "measuring..."))
				continue
			}
			lines = append(lines, field(n.Name, "↓ "+dashboard.FormatRate(n.RxPerSecond)+"  ↑ "+dashboard.FormatRate(n.TxPerSecond)))
		}

	case models.CategoryGPU:
		gpu := r.GPU
		lines = append(lines, ValueStyle.Render(gpu.Name))
		lines = append(lines, m.renderBar("util", "gpu", gpu.Utilization/100, fmt.Sprintf("%5.1f%%", gpu.Utilization)))
		switch {
		case gpu.MemoryTotal > 0 && gpu.MemoryUsed > 0:
			lines = append(lines, m.renderBar("vram", "gpu.memory", gpu.MemoryFraction(),
				dashboard.FormatBytes(gpu.MemoryUsed)+" / "+dashboard.FormatBytes(gpu.MemoryTotal)))
		case gpu.MemoryTotal > 0:
			lines = append(lines, field("vram", dashboard.FormatBytes(gpu.MemoryTotal)))
		}
		if gpu.HasTemperature {
			lines = append(lines, field("temp", fmt.Sprintf("%.0f°C", gpu.TemperatureC)))
		}

	case models.CategorySystem:
		sys := r.System
		lines = append(lines,
			field("host", sys.Hostname),
			field("os", strings.TrimSpace(sys.OSName+" "+sys.OSVersion)),
			field("uptime", dashboard.FormatUptime(sys.Uptime)),
		)
	}
	if r.Health != models.HealthOk && r.Error != "" {
		lines = append(lines, WarningStyle.Render(r.Error))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBar(label, gaugeKey string, target float64, value string) string {
	v := min(max(m.gauge(gaugeKey, target), 0), 1)
	return fmt.Sprintf("%-6s %s %s", LabelStyle.Render(truncate(label, 6)), m.bar.ViewAs(v), usageStyle(target*100).Render(value))
}

func (m Model) renderTools() string {
	if len(m.packages) == 0 {
		return LabelStyle.Render("No packages in catalog")
	}
	var lines []string
	category := ""
	for i, p := range m.packages {
		if p.Category != category {
			category = p.Category
			lines = append(lines, TitleStyle.Render(category))
		}
		mark := "  "
		switch {
		case m.frame.Installed == nil:
			mark = LabelStyle.Render("?") + " "
		case m.frame.Installed[p.ID]:
			mark = OkStyle.Render("✓") + " "
		}
		line := mark + p.Name
		if j, ok := m.latestJob(p.ID); ok {
			line += "  " + LabelStyle.Render(dashboard.JobLabel(j))
		}
		if i == m.selected {
			line = SelectedStyle.Render(">") + " " + SelectedStyle.Render(line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if m.frame.InstallerRunning {
		lines = append(lines, WarningStyle.Render("An installer is running; detection paused"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderJobs() string {
	if len(m.frame.Jobs) == 0 {
		return ""
	}
	lines := []string{TitleStyle.Render("Installs")}
	for _, j := range m.frame.Jobs {
		name := j.PackageName
		if name == "" {
			name = j.PackageID
		}
		line := fmt.Sprintf("%-7s %-20s ", j.ID.String(), truncate(name, 20))
		switch {
		case j.State == models.JobDownloading && !j.Indeterminate:
			line += m.bar.ViewAs(j.Progress) + " "
		case j.State == models.JobSucceeded:
			line += OkStyle.Render("✓") + " "
		case j.State == models.JobFailed:
			line += CriticalStyle.Render("✗") + " "
		}
		lines = append(lines, line+dashboard.JobLabel(j))
	}
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return fmt.Sprintf("%-6s %s", LabelStyle.Render(truncate(label, 6)), ValueStyle.Render(value))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
