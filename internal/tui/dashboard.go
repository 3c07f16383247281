package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
	"github.com/manav03panchal/medtime/internal/service"
)

// tickMsg is sent when the clock ticks.
type tickMsg time.Time

// dataMsg carries freshly loaded doses.
type dataMsg struct {
	doses []Dose
	err   error
}

// actionMsg reports the result of an action on a dose.
type actionMsg struct {
	dose    Dose
	outcome scheduler.Outcome
	err     error
}

// DashboardModel is the bubbletea model for the dashboard.
type DashboardModel struct {
	svc service.Service
	ctx context.Context
	now func() time.Time
	loc *time.Location

	doses  []Dose
	cursor int

	width      int
	height     int
	err        error
	message    string
	messageExp time.Time
	busy       bool

	refreshInterval time.Duration
	snoozeMinutes   int
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	Service         service.Service
	Location        *time.Location
	Now             func() time.Time
	RefreshInterval time.Duration
	SnoozeMinutes   int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(ctx context.Context, config DashboardConfig) *DashboardModel {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 30 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &DashboardModel{
		svc:             config.Service,
		ctx:             ctx,
		now:             config.Now,
		loc:             config.Location,
		refreshInterval: config.RefreshInterval,
		snoozeMinutes:   config.SnoozeMinutes,
	}
}

// Init initializes the model.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.loadCmd())
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.messageExp.IsZero() && m.now().After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		return m, tea.Batch(m.tickCmd(), m.loadCmd())

	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.doses = msg.doses
			m.clampCursor()
		}
		return m, nil

	case actionMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setMessage(describeOutcome(msg.dose, msg.outcome), 3*time.Second)
		return m, m.loadCmd()
	}

	return m, nil
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.doses)-1 {
			m.cursor++
		}
		return m, nil

	case "t":
		return m, m.actCmd(string(model.ActionTaken))
	case "s":
		return m, m.actCmd(string(model.ActionSnooze))
	case "x":
		return m, m.actCmd(string(model.ActionSkip))

	case "r":
		m.setMessage("Refreshed", time.Second)
		return m, m.loadCmd()
	}

	return m, nil
}

// Selected returns the dose under the cursor.
func (m *DashboardModel) Selected() (Dose, bool) {
	if m.cursor < 0 || m.cursor >= len(m.doses) {
		return Dose{}, false
	}
	return m.doses[m.cursor], true
}

func (m *DashboardModel) actCmd(action string) tea.Cmd {
	d, ok := m.Selected()
	if !ok || m.busy {
		return nil
	}
	if !d.Answerable() {
		m.setMessage(fmt.Sprintf("%s at %s is %s", d.Reminder.MedicationName, d.TimeOfDay, d.State), 2*time.Second)
		return nil
	}
	m.busy = true
	req := service.ActionRequest{AlarmID: d.AlarmID, Action: action, Minutes: m.snoozeMinutes}
	return func() tea.Msg {
		out, err := m.svc.Act(m.ctx, req)
		return actionMsg{dose: d, outcome: out, err: err}
	}
}

func describeOutcome(d Dose, out scheduler.Outcome) string {
	name := d.Reminder.MedicationName
	switch {
	case out.Discarded:
		return name + ": alarm no longer scheduled"
	case out.SnoozeAlarmID != "":
		return fmt.Sprintf("%s snoozed until %s", name, out.SnoozeFireAt.Format("15:04"))
	case out.Downgraded:
		return name + ": already snoozed, recorded as skipped"
	default:
		return fmt.Sprintf("%s %s", name, out.Status)
	}
}

// loadCmd fetches reminders, adherence and alarms and rebuilds today.
func (m *DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		doses, err := m.load()
		return dataMsg{doses: doses, err: err}
	}
}

func (m *DashboardModel) load() ([]Dose, error) {
	reminders, err := m.svc.ListReminders(m.ctx)
	if err != nil {
		return nil, err
	}
	adherence := make(map[string][]model.AdherenceLogEntry, len(reminders))
	for _, r := range reminders {
		log, err := m.svc.Adherence(m.ctx, r.ID)
		if err != nil {
			return nil, err
		}
		adherence[r.ID] = log
	}
	alarms, err := m.svc.Alarms(m.ctx)
	if err != nil {
		return nil, err
	}
	pending, err := m.svc.Pending(m.ctx)
	if err != nil {
		return nil, err
	}
	return TodayDoses(reminders, adherence, alarms, pending, m.now().In(m.loc)), nil
}

func (m *DashboardModel) clampCursor() {
	if m.cursor >= len(m.doses) {
		m.cursor = len(m.doses) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	now := m.now().In(m.loc)
	sections := []string{m.renderHeader(now)}

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.message != "" {
		sections = append(sections, StyleWarning.Render(m.message))
	}

	sections = append(sections,
		NewDosesComponent(m.doses, m.cursor, m.width, now).View(),
		(&SummaryComponent{Doses: m.doses, Width: m.width}).View(),
		HelpBar(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader(now time.Time) string {
	title := StyleTitle.Render("medtime")
	timeStr := StyleSubtitle.Render(now.Format("Mon Jan 2, 15:04"))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", timeStr) + "\n"
}

// setMessage sets a temporary message.
func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = m.now().Add(duration)
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the dashboard TUI.
func Run(ctx context.Context, config DashboardConfig) error {
	p := tea.NewProgram(NewDashboardModel(ctx, config), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
