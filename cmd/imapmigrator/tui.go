package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	lipgloss "github.com/charmbracelet/lipgloss"

	"github.com/pepperpark/imapmigrator/internal/app"
	"github.com/pepperpark/imapmigrator/internal/mailbox"
	"github.com/pepperpark/imapmigrator/internal/migrator"
)

type tickMsg time.Time
type eventMsg migrator.Event
type doneMsg struct{ err error }

// model counts finished mailboxes across all requested operations.
type model struct {
	cancel   context.CancelFunc
	total    int
	done     int
	current  string
	failures []string
	err      error
	finished bool
	spinner  spinner.Model
	bar      progress.Model
	// mailboxes per second, smoothed
	rate     float64
	lastDone int
	lastAt   time.Time
	started  time.Time
}

func newModel(total int, cancel context.CancelFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Line
	bar := progress.New(progress.WithDefaultGradient())
	now := time.Now()
	return &model{cancel: cancel, total: total, spinner: s, bar: bar, started: now, lastAt: now}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd { return tea.Batch(m.spinner.Tick, tick()) }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.cancel()
		}
	case eventMsg:
		switch msg.Type {
		case migrator.EventMailboxStart:
			m.current = fmt.Sprintf("%s %s", msg.Op, msg.Mailbox)
		case migrator.EventUpload:
			m.current = fmt.Sprintf("%s %s: %s", msg.Op, msg.Mailbox, msg.Folder)
		case migrator.EventMailboxDone, migrator.EventMailboxSkipped:
			m.done++
			if msg.Err != nil {
				m.failures = append(m.failures, fmt.Sprintf("%s %s: %v", msg.Op, msg.Mailbox, msg.Err))
			}
		}
	case doneMsg:
		m.err = msg.err
		m.finished = true
		m.current = ""
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		m.updateRate()
		return m, tick()
	}
	return m, nil
}

func (m *model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Render("IMAP migrator")
	s := title + "\n\nPress q to stop after the current mailbox\n\n"
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	s += fmt.Sprintf("%s Mailboxes %d/%d   %s\n", m.spinner.View(), m.done, m.total, m.eta())
	s += m.bar.ViewAs(pct) + "\n"
	if m.current != "" {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(m.current) + "\n"
	}
	s += "\n"
	if len(m.failures) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Failures:\n")
		for _, f := range m.failures {
			s += " - " + f + "\n"
		}
	}
	if m.finished && m.err != nil {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Error: "+m.err.Error()) + "\n"
	}
	return s
}

// rateHalfLife is how quickly the mailbox rate forgets older ticks.
const rateHalfLife = 3 * time.Second

// updateRate folds the mailboxes finished since the last tick into a
// smoothed mailboxes-per-second rate used for the ETA.
func (m *model) updateRate() {
	now := time.Now()
	elapsed := now.Sub(m.lastAt)
	if elapsed <= 0 {
		return
	}
	perSec := float64(m.done-m.lastDone) / elapsed.Seconds()
	weight := 1 - math.Pow(0.5, float64(elapsed)/float64(rateHalfLife))
	if m.rate == 0 {
		m.rate = perSec
	} else {
		m.rate += weight * (perSec - m.rate)
	}
	m.lastDone = m.done
	m.lastAt = now
}

func (m *model) eta() string {
	if m.total == 0 {
		return "ETA --"
	}
	remaining := m.total - m.done
	if remaining <= 0 {
		return "ETA 0s"
	}
	rate := m.rate
	if rate <= 0.001 {
		elapsed := time.Since(m.started).Seconds()
		if elapsed <= 0 {
			return "ETA --"
		}
		rate = float64(m.done) / elapsed
	}
	if rate <= 0.001 {
		return "ETA --"
	}
	d := time.Duration(float64(remaining)/rate) * time.Second
	switch {
	case d > 99*time.Hour:
		return "ETA >99h"
	case d >= time.Hour:
		return fmt.Sprintf("ETA %dh%dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("ETA %dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < time.Second:
		return "ETA <1s"
	}
	return fmt.Sprintf("ETA %ds", int(d.Seconds()))
}

// runProgress executes the run in the background while showing a progress
// bar. If the view cannot start, the run still completes with file logging only.
func runProgress(ctx context.Context, a *app.App, set mailbox.Set, opts app.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(app.Planned(set, opts), cancel)
	p := tea.NewProgram(m)
	a.OnEvent = func(ev migrator.Event) { p.Send(eventMsg(ev)) }

	errc := make(chan error, 1)
	go func() {
		_, err := a.Execute(ctx, set, opts)
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		a.Log.Warn().Err(err).Msg("progress view failed")
	}
	// Wait for the run to stop, whichever way the view ended.
	err := <-errc
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return err
}
