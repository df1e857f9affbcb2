package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/filter"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/ui/viewer"
)

// IsAborted reports whether err means the user cancelled a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, huh.ErrUserAborted)
}

// Credentials is what the e-mail settings form collects.
type Credentials struct {
	Email    string
	Password string
	Server   string
	Username string

	// Remember stores the password in the system keyring.
	Remember bool
}

// Prompt runs the interactive forms of the menu.
type Prompt struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// NewPrompt returns a prompt reading from in and drawing to out.
// Accessible mode replaces the TUI forms with line based prompts.
func NewPrompt(in io.Reader, out io.Writer, accessible bool) *Prompt {
	return &Prompt{in: in, out: out, accessible: accessible}
}

func (p *Prompt) run(ctx context.Context, groups ...*huh.Group) error {
	return huh.NewForm(groups...).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(p.accessible).
		WithTheme(huh.ThemeCharm()).
		RunWithContext(ctx)
}

// Message prints a line of feedback.
func (p *Prompt) Message(text string) {
	fmt.Fprintln(p.out, text)
}

// Menu shows the status panel and lets the user pick one of actions.
func (p *Prompt) Menu(ctx context.Context, st model.Status, actions []string) (string, error) {
	fmt.Fprintln(p.out, RenderStatus(st))

	var choice string
	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("What do you want to do?").
			Options(huh.NewOptions(actions...)...).
			Value(&choice),
	))
	return choice, err
}

// Credentials asks for the account settings, starting from current.
func (p *Prompt) Credentials(ctx context.Context, current Credentials) (Credentials, error) {
	c := current
	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("E-mail").
			Placeholder("user@example.com").
			Value(&c.Email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(validateRequired("Password")),
		huh.NewInput().
			Title("Server").
			Description("Leave empty to discover it from the e-mail domain").
			Value(&c.Server),
		huh.NewInput().
			Title("Username").
			Description("Leave empty to log in with the e-mail address").
			Value(&c.Username),
		huh.NewConfirm().
			Title("Remember the password in the system keyring?").
			Value(&c.Remember),
	))
	if err != nil {
		return current, err
	}

	c.Email = strings.TrimSpace(c.Email)
	c.Server = strings.TrimSpace(c.Server)
	c.Username = strings.TrimSpace(c.Username)
	return c, nil
}

// DateRange asks for the inclusive day range. An empty answer leaves that
// bound open.
func (p *Prompt) DateRange(ctx context.Context, current model.FilterState) (*time.Time, *time.Time, error) {
	from := formatDay(current.From)
	to := formatDay(current.To)

	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("From date").
			Placeholder(filter.DayLayout).
			Value(&from).
			Validate(validateDay),
		huh.NewInput().
			Title("To date").
			Placeholder(filter.DayLayout).
			Value(&to).
			Validate(validateDay),
	))
	if err != nil {
		return nil, nil, err
	}

	fromT, err := filter.ParseDay(from, false)
	if err != nil {
		return nil, nil, err
	}
	toT, err := filter.ParseDay(to, true)
	if err != nil {
		return nil, nil, err
	}
	return fromT, toT, nil
}

// anyFolder is the option that clears the folder filter.
const anyFolder = "(any folder)"

// Folder lets the user pick one of the stored folder labels.
func (p *Prompt) Folder(ctx context.Context, folders []string) (string, error) {
	options := []huh.Option[string]{huh.NewOption(anyFolder, "")}
	for _, f := range folders {
		options = append(options, huh.NewOption(f, f))
	}

	var choice string
	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Folder").
			Options(options...).
			Value(&choice),
	))
	return choice, err
}

// Keyword asks for the search keyword. An empty answer clears it.
func (p *Prompt) Keyword(ctx context.Context, current string) (string, error) {
	kw := current
	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Keyword").
			Description("Matched in to, sender, subject and body, ignoring case").
			Value(&kw),
	))
	return strings.TrimSpace(kw), err
}

// PickRecord lets the user choose a record. ok is false when the user
// picked Exit.
func (p *Prompt) PickRecord(ctx context.Context, choices []export.Choice) (int64, bool, error) {
	options := []huh.Option[int64]{huh.NewOption("Exit", int64(0))}
	for _, c := range choices {
		options = append(options, huh.NewOption(c.Label, c.ID))
	}

	var id int64
	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[int64]().
			Title(fmt.Sprintf("%d e-mails", len(choices))).
			Options(options...).
			Height(20).
			Value(&id),
	))
	if err != nil {
		return 0, false, err
	}
	return id, id != 0, nil
}

// ShowRecord opens msg in the viewer. It reports whether the user asked to
// quit instead of going back to the list.
func (p *Prompt) ShowRecord(ctx context.Context, msg model.Message) (bool, error) {
	if p.accessible {
		fmt.Fprintln(p.out, viewer.Content(msg))
		return false, nil
	}
	return viewer.Run(ctx, msg)
}

// ExportDir shows the preview and asks where to write the files. ok is
// false when the user declined.
func (p *Prompt) ExportDir(ctx context.Context, msgs []model.Message, def string) (string, bool, error) {
	fmt.Fprintln(p.out, RenderPreview(msgs))

	dir := def
	confirmed := true
	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Output directory").
			Value(&dir).
			Validate(validateRequired("Output directory")),
		huh.NewConfirm().
			Title(fmt.Sprintf("Save %d e-mails?", len(msgs))).
			Value(&confirmed),
	))
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(dir), confirmed, nil
}

// AuthCode shows the OAuth consent URL and reads back the code.
func (p *Prompt) AuthCode(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintf(p.out, "Open this link in a browser and paste the code:\n%s\n", authURL)

	var code string
	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Authorization code").
			Value(&code).
			Validate(validateRequired("Authorization code")),
	))
	return strings.TrimSpace(code), err
}

// ContinuePastDuplicate asks whether to keep walking older messages once
// folder reached one that is already stored.
func (p *Prompt) ContinuePastDuplicate(ctx context.Context, folder string, msg model.Message) (bool, error) {
	proceed := false
	err := p.run(ctx, huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s: reached an e-mail that is already stored", folder)).
			Description(fmt.Sprintf("%s  %s\nContinue with older e-mails?",
				msg.ReceivedAt.UTC().Format(model.TimeLayout), msg.Subject)).
			Affirmative("Continue").
			Negative("Stop").
			Value(&proceed),
	))
	if IsAborted(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return proceed, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(filter.DayLayout)
}

func validateDay(v string) error {
	_, err := filter.ParseDay(v, false)
	return err
}

func validateRequired(field string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateEmail(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("E-mail is required")
	}
	if _, domain, ok := strings.Cut(v, "@"); !ok || domain == "" {
		return fmt.Errorf("%q is not an e-mail address", v)
	}
	return nil
}
