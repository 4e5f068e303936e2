package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mdex/pkg/app/components"
	"github.com/kerbaras/mdex/pkg/app/styles"
	"github.com/kerbaras/mdex/pkg/services"
)

// App shows the progress of a download job.
type App struct {
	title       string
	events      <-chan services.DownloadProgress
	out         io.Writer
	interactive bool
}

func NewApp(title string, events <-chan services.DownloadProgress) *App {
	return &App{title: title, events: events, out: os.Stdout, interactive: true}
}

// WithOutput renders to w. A non-interactive app prints one line per
// chapter event instead of redrawing bars.
func (a *App) WithOutput(w io.Writer, interactive bool) *App {
	a.out = w
	a.interactive = interactive
	return a
}

// Run executes job and displays its progress until it returns. The job error
// is returned as is.
func (a *App) Run(ctx context.Context, job func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !a.interactive {
		return a.runPlain(ctx, job)
	}

	p := tea.NewProgram(newDownloadModel(a.title, a.events, cancel), tea.WithOutput(a.out))

	result := make(chan error, 1)
	go func() {
		err := job(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("failed to run progress view: %w", err)
	}
	return <-result
}

func (a *App) runPlain(ctx context.Context, job func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- job(ctx) }()

	printer := newLinePrinter(a.out)
	events := a.events
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			printer.print(ev)
		case err := <-done:
			for {
				select {
				case ev, ok := <-events:
					if ok {
						printer.print(ev)
						continue
					}
				default:
				}
				return err
			}
		}
	}
}

// linePrinter writes chapter level events, skipping per page updates.
type linePrinter struct {
	out     io.Writer
	numbers map[string]string
}

func newLinePrinter(out io.Writer) *linePrinter {
	return &linePrinter{out: out, numbers: make(map[string]string)}
}

func (l *linePrinter) print(ev services.DownloadProgress) {
	if ev.ChapterID == "" {
		return
	}
	if ev.ChapterNumber != "" {
		l.numbers[ev.ChapterID] = ev.ChapterNumber
	}
	label := l.numbers[ev.ChapterID]
	if label == "" {
		label = ev.ChapterID
	}

	switch ev.Status {
	case "downloading":
		if ev.ChapterNumber == "" {
			return
		}
		fmt.Fprintf(l.out, "chapter %s: downloading\n", label)
	case "error":
		fmt.Fprintf(l.out, "chapter %s: error: %v\n", label, ev.Error)
	default:
		fmt.Fprintf(l.out, "chapter %s: %s\n", label, ev.Status)
	}
}

type progressMsg services.DownloadProgress

type doneMsg struct{ err error }

type downloadModel struct {
	title     string
	events    <-chan services.DownloadProgress
	tracker   *components.ProgressTracker
	spinner   spinner.Model
	cancel    context.CancelFunc
	canceling bool
	done      bool
	err       error
}

func newDownloadModel(title string, events <-chan services.DownloadProgress, cancel context.CancelFunc) downloadModel {
	return downloadModel{
		title:   title,
		events:  events,
		tracker: components.NewProgressTracker(80),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary))),
		cancel:  cancel,
	}
}

// waitForProgress delivers the next event. A closed channel ends the
// subscription.
func waitForProgress(events <-chan services.DownloadProgress) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return progressMsg(ev)
	}
}

func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.events))
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.tracker.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.canceling {
				return m, tea.Quit
			}
			m.canceling = true
			m.cancel()
		}
		return m, nil

	case progressMsg:
		m.tracker.Update(services.DownloadProgress(msg))
		return m, waitForProgress(m.events)

	case doneMsg:
		m.done, m.err = true, msg.err
		m.drain()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// drain applies the events still buffered when the job returned.
func (m downloadModel) drain() {
	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return
			}
			m.tracker.Update(ev)
		default:
			return
		}
	}
}

func (m downloadModel) View() string {
	title := m.title
	if m.canceling && !m.done {
		title += " (canceling)"
	}
	header := styles.TitleStyle.Render(title)
	if !m.done {
		header = m.spinner.View() + " " + header
	}

	view := header + "\n" + m.tracker.View() + "\n"
	if m.done && m.err != nil {
		view += styles.StatusError.Render(m.err.Error()) + "\n"
	}
	if !m.done {
		view += styles.HelpStyle.Render("ctrl+c cancel") + "\n"
	}
	return view
}
