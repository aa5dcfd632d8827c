package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"veil/internal/progress"
	"veil/internal/workflow"
)

type setupPhase int

const (
	phaseForm setupPhase = iota
	phaseRun
	phaseDone
)

// Focus order on the form: three text fields, four toggles, the start button.
const (
	focusDomain = iota
	focusPath
	focusClient
	focusFresh
	focusCover
	focusFirewall
	focusResolver
	focusStart
	focusCount
)

// stepDoneMsg carries the step's outcome and the updated state back to the
// event loop; the goroutine that ran the step never touches the model.
type stepDoneMsg struct {
	index   int
	skipped bool
	err     error
	state   provisionState
}

type spinnerTickMsg struct{}

var spinnerFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

type model struct {
	w int
	h int

	phase setupPhase
	focus int
	err   string

	domain field
	path   field
	client field

	fresh       bool
	cover       bool
	firewall    bool
	resolverFix bool

	pipe    *pipeline
	state   provisionState
	steps   []workflow.Step
	tracker *progress.Tracker
	report  progress.Report

	working     bool
	spinnerTick int
	fatal       string
	summary     string
}

func newModel(defaults promptDefaults) model {
	m := model{}
	m.domain = field{placeholder: "example.com"}
	m.path = field{placeholder: "/ws"}
	m.client = field{placeholder: "blank = generate UUID"}
	m.domain.setValue(defaults.Domain)
	m.path.setValue(defaults.Path)
	m.client.setValue(defaults.ClientID)
	m.cover = defaults.CoverSite
	m.firewall = defaults.Firewall
	m.resolverFix = defaults.ResolverFix
	m.phase = phaseForm
	return m
}

func (m model) Init() tea.Cmd { return nil }

func spinnerCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return spinnerTickMsg{} })
}

func (m *model) toggleAt(focus int) *bool {
	switch focus {
	case focusFresh:
		return &m.fresh
	case focusCover:
		return &m.cover
	case focusFirewall:
		return &m.firewall
	case focusResolver:
		return &m.resolverFix
	}
	return nil
}

func (m *model) fieldAt(focus int) *field {
	switch focus {
	case focusDomain:
		return &m.domain
	case focusPath:
		return &m.path
	case focusClient:
		return &m.client
	}
	return nil
}

func (m *model) attemptStart() tea.Cmd {
	m.err = ""
	sess, err := newSession(
		m.domain.valueString(),
		m.path.valueString(),
		m.client.valueString(),
		m.fresh, m.cover, m.firewall, m.resolverFix,
	)
	if err != nil {
		m.err = err.Error()
		m.focus = focusDomain
		return nil
	}

	defs := workflow.ProvisionStepDefinitions()
	if err := workflow.ValidateStepDefinitions(defs); err != nil {
		m.err = err.Error()
		return nil
	}

	m.pipe = newPipeline()
	m.state = provisionState{Session: sess}
	m.steps = workflow.DefaultProvisionSteps()
	m.tracker = progress.NewTracker(len(m.steps))
	m.report = progress.Report{Total: len(m.steps)}
	m.phase = phaseRun
	m.working = true
	m.fatal = ""
	m.spinnerTick = 0
	m.steps[0].State = workflow.StepRunning
	return tea.Batch(m.runStepCmd(0), spinnerCmd())
}

func (m model) runStepCmd(index int) tea.Cmd {
	pipe, st, id := m.pipe, m.state, m.steps[index].ID
	return func() tea.Msg {
		next, skipped, err := pipe.runStep(id, st)
		return stepDoneMsg{index: index, skipped: skipped, err: err, state: next}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		return m, nil

	case spinnerTickMsg:
		if m.phase == phaseRun && m.working {
			m.spinnerTick = (m.spinnerTick + 1) % len(spinnerFrames)
			return m, spinnerCmd()
		}
		return m, nil

	case stepDoneMsg:
		if m.phase != phaseRun || msg.index < 0 || msg.index >= len(m.steps) {
			return m, nil
		}
		m.state = msg.state
		m.report = m.tracker.Advance(m.steps[msg.index].Label)

		if msg.err != nil {
			m.steps[msg.index].State = workflow.StepFailed
			m.steps[msg.index].Err = msg.err.Error()
			m.fatal = fmt.Sprintf("stage %d/%d (%s) failed: %v",
				msg.index+1, len(m.steps), m.steps[msg.index].Label, msg.err)
			m.working = false
			return m, nil
		}
		if msg.skipped {
			m.steps[msg.index].State = workflow.StepSkipped
		} else {
			m.steps[msg.index].State = workflow.StepDone
		}

		next := msg.index + 1
		if next >= len(m.steps) {
			m.working = false
			m.phase = phaseDone
			m.summary = buildSummary(m.state)
			return m, nil
		}
		m.steps[next].State = workflow.StepRunning
		return m, m.runStepCmd(next)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	switch m.phase {
	case phaseForm:
		switch msg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.focus = (m.focus + 1) % focusCount
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.focus = (m.focus - 1 + focusCount) % focusCount
			return m, nil
		case tea.KeyEnter:
			if m.focus == focusStart {
				return m, m.attemptStart()
			}
			m.focus = (m.focus + 1) % focusCount
			return m, nil
		case tea.KeyEsc:
			return m, tea.Quit
		}
		if t := m.toggleAt(m.focus); t != nil {
			if msg.Type == tea.KeySpace || (msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && (msg.Runes[0] == 'x' || msg.Runes[0] == ' ')) {
				*t = !*t
			}
			return m, nil
		}
		if f := m.fieldAt(m.focus); f != nil {
			f.handleKey(msg)
		}
		return m, nil

	case phaseRun:
		if !m.working && m.fatal != "" {
			if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc || keyIs(msg, 'q') {
				return m, tea.Quit
			}
		}
		return m, nil

	case phaseDone:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc || keyIs(msg, 'q') {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func keyIs(msg tea.KeyMsg, r rune) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] == r
}
