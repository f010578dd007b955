package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"vanet-sim/internal/scenario"
	"vanet-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// sampleMsg carries the latest sample for the footer and trend.
type sampleMsg struct{ telemetry.SampleRow }

// summaryMsg carries the end-of-run summary.
type summaryMsg struct{ telemetry.SummaryRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

const (
	trendLen  = 40
	sparkRune = "▁▂▃▄▅▆▇█"
)

// TUIWriter renders samples using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(params *scenario.Parameters) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(params)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func sampleLine(row telemetry.SampleRow) string {
	return fmt.Sprintf("%s[t=%6.1fs]%s %s rx=%.3fkbps pkts=%d bsm=%d/%d cov=%d/%d %spdr=%.4f%s",
		colorGray, row.SimulationSecond, colorReset,
		row.RoutingProtocol, row.ReceiveRateKbps, row.PacketsReceived,
		row.WavePktsReceived, row.WavePktsSent,
		row.ReceivedInCoverage, row.ExpectedInCoverage,
		pdrColor(row.CoveragePDR), row.CoveragePDR, colorReset)
}

// WriteSample implements SampleWriter.
func (w *TUIWriter) WriteSample(row telemetry.SampleRow) error {
	w.program.Send(logMsg{line: sampleLine(row)})
	w.program.Send(sampleMsg{row})
	return nil
}

// WriteSummary implements SummaryWriter.
func (w *TUIWriter) WriteSummary(row telemetry.SummaryRow) error {
	w.program.Send(summaryMsg{row})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close stops the program and waits for it to exit.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	params       *scenario.Parameters
	table        table.Model
	vp           viewport.Model
	filter       textinput.Model
	filtering    bool
	logs         []string
	last         telemetry.SampleRow
	haveSample   bool
	summary      *telemetry.SummaryRow
	trend        []float64
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(params *scenario.Parameters) tuiModel {
	cols := []table.Column{
		{Title: "Parameter", Width: 18},
		{Title: "Value", Width: 22},
		{Title: "Parameter", Width: 18},
		{Title: "Value", Width: 22},
	}
	var rows []table.Row
	if params != nil {
		rows = []table.Row{
			{"Scenario", fmt.Sprintf("%d", params.Scenario), "Mobility", params.Mobility.String()},
			{"Nodes / Sinks", fmt.Sprintf("%d / %d", params.Nodes, params.Sinks), "Total Time (s)", fmt.Sprintf("%.2f", params.TotalTime)},
			{"Routing", params.Protocol.String(), "Loss Model", params.LossModel.String()},
			{"PHY Mode", params.DataMode(), "Tx Power (dBm)", fmt.Sprintf("%.1f", params.TxPower)},
			{"Safety Range (m)", fmt.Sprintf("%.0f", params.SafetyRange), "BSM", fmt.Sprintf("%d B / %.2f s", params.BeaconSize, params.BeaconInterval)},
		}
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	fi := textinput.New()
	fi.Placeholder = "filter"
	fi.Prompt = "/ "
	return tuiModel{
		params:     params,
		table:      t,
		vp:         viewport.New(0, 0),
		filter:     fi,
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.table.View()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.filtering {
			switch msg.Type {
			case tea.KeyEnter, tea.KeyEsc:
				if msg.Type == tea.KeyEsc {
					m.filter.SetValue("")
				}
				m.filtering = false
				m.filter.Blur()
				m.refreshViewport()
				m.updateViewportHeight()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refreshViewport()
			return m, cmd
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "/":
			m.filtering = true
			m.updateViewportHeight()
			return m, m.filter.Focus()
		case "?", "h":
			m.help = true
			return m, nil
		}
		if !m.autoscroll {
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	case sampleMsg:
		m.last = msg.SampleRow
		m.haveSample = true
		m.trend = append(m.trend, msg.CoveragePDR)
		if len(m.trend) > trendLen {
			m.trend = m.trend[len(m.trend)-trendLen:]
		}
	case summaryMsg:
		s := msg.SummaryRow
		m.summary = &s
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - m.headerHeight - lipgloss.Height(m.renderBottom()) - 2
	if m.filtering {
		h--
	}
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	needle := strings.ToLower(m.filter.Value())
	var lines []string
	for _, l := range m.logs {
		if needle != "" && !strings.Contains(strings.ToLower(l), needle) {
			continue
		}
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View()}
	if m.filtering {
		sections = append(sections, m.filter.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

// sparkline renders values in [0,1] as block characters.
func sparkline(vals []float64) string {
	blocks := []rune(sparkRune)
	var b strings.Builder
	for _, v := range vals {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		b.WriteRune(blocks[int(v*float64(len(blocks)-1))])
	}
	return b.String()
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	state := fmt.Sprintf("%sWAITING%s", colorGray, colorReset)
	if m.haveSample {
		state = fmt.Sprintf("%sT=%.1fs%s %srx=%.3fkbps%s %sbsm_pdr=%.4f%s %strend=%s%s",
			colorBlue, m.last.SimulationSecond, colorReset,
			colorCyan, m.last.ReceiveRateKbps, colorReset,
			pdrColor(m.last.CoveragePDR), m.last.CoveragePDR, colorReset,
			colorYellow, sparkline(m.trend), colorReset)
	}
	line := fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Help ?", state,
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
	if m.summary != nil {
		s := m.summary
		sum := fmt.Sprintf("%sSUMMARY%s pdr=%.4f delay=%.6fs jitter=%.6fs loss=%.4f rx=%.3fkbps routing=%.3fkbps",
			colorMagenta, colorReset, s.CoveragePDR, s.MeanDelay, s.MeanJitter,
			s.MeanPktLossRatio, s.MeanRxKbps, s.MeanRoutingKbps)
		return sum + "\n" + line
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" /  filter log lines (enter keeps, esc clears)",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
