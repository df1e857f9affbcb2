// Package viewer shows a single cached record in a scrollable pane.
package viewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailmirror/internal/keys"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/render"
	"github.com/nhle/mailmirror/internal/theme"
)

// Model is the record viewer.
type Model struct {
	msg      model.Message
	viewport viewport.Model
	help     help.Model
	keys     *keys.KeyMap
	frame    frame
	showHelp bool
	ready    bool

	// Quit is set when the user asked to leave the whole menu rather
	// than go back to the record list.
	Quit bool
}

// New creates a viewer for msg.
func New(msg model.Message, km *keys.KeyMap, width, height int) Model {
	m := Model{
		msg:   msg,
		help:  help.New(),
		keys:  km,
		frame: frame{width: width, height: height},
	}
	m.viewport = viewport.New(width, m.frame.bodyHeight())
	m.viewport.SetContent(Content(msg))
	m.ready = width > 0
	return m
}

// Content renders the header block and the rendered body of msg.
func Content(msg model.Message) string {
	rule := theme.MutedStyle.Render(strings.Repeat("_", 50))

	var b strings.Builder
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%s %s\n", theme.LabelStyle.Render("From:"), msg.Sender)
	fmt.Fprintf(&b, "%s %s\n", theme.LabelStyle.Render("To:"), msg.To)
	fmt.Fprintf(&b, "%s %s\n", theme.LabelStyle.Render("Cc:"), msg.Cc)
	fmt.Fprintf(&b, "%s %s\n", theme.LabelStyle.Render("Subject:"), theme.SubjectStyle.Render(msg.Subject))
	b.WriteString(rule + "\n")
	b.WriteString(render.Body(msg.Body))
	return b.String()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.frame = frame{width: msg.Width, height: msg.Height}
		m.viewport.Width = msg.Width
		m.viewport.Height = m.frame.bodyHeight()
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Quit = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.frame.header(
		fmt.Sprintf("#%d %s", m.msg.ID, m.msg.Subject),
		m.msg.Folder+"  "+m.msg.ReceivedAt.UTC().Format(model.TimeLayout),
	)

	body := m.viewport.View()
	if m.showHelp {
		m.help.ShowAll = true
		body = theme.HelpStyle.
			Height(m.frame.bodyHeight()).
			Render(m.help.View(m.keys))
	}

	position := fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)
	return m.frame.render(header, body, m.frame.statusBar(m.help.ShortHelpView(m.keys.ShortHelp()), position))
}

// Run shows msg full screen until the user leaves. It reports whether the
// user asked to quit instead of going back.
func Run(ctx context.Context, msg model.Message) (bool, error) {
	p := tea.NewProgram(
		New(msg, keys.DefaultKeyMap(), 0, 0),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running viewer: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Quit, nil
	}
	return false, nil
}
