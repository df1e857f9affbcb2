package cli

import (
	"context"
	"fmt"

	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/filter"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/ui"
)

type MenuCmd struct{}

func (cmd *MenuCmd) Run(ctx context.Context, c *Context) error {
	if c.Globals.OneShot() {
		return runSync(ctx, c)
	}
	return c.App.Run(ctx)
}

type SyncCmd struct{}

func (cmd *SyncCmd) Run(ctx context.Context, c *Context) error {
	return runSync(ctx, c)
}

type StatusCmd struct{}

func (cmd *StatusCmd) Run(ctx context.Context, c *Context) error {
	st, err := c.App.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, ui.RenderStatus(st))
	return nil
}

// FilterFlags are shared by search and export.
type FilterFlags struct {
	From   string `help:"First day to include (YYYY-MM-DD)" placeholder:"DATE"`
	To     string `help:"Last day to include (YYYY-MM-DD)" placeholder:"DATE"`
	Folder string `help:"Folder label, e.g. Inbox, Sent or Archive/<name>"`
}

// State builds the filter from the flags and keyword.
func (f FilterFlags) State(keyword string) (model.FilterState, error) {
	from, err := filter.ParseDay(f.From, false)
	if err != nil {
		return model.FilterState{}, err
	}
	to, err := filter.ParseDay(f.To, true)
	if err != nil {
		return model.FilterState{}, err
	}
	return model.FilterState{
		Keyword: keyword,
		From:    from,
		To:      to,
		Folder:  f.Folder,
	}, nil
}

type SearchCmd struct {
	Keyword string `arg:"" optional:"" help:"Keyword matched in to, sender, subject and body"`
	FilterFlags
}

func (cmd *SearchCmd) Run(ctx context.Context, c *Context) error {
	state, err := cmd.State(cmd.Keyword)
	if err != nil {
		return err
	}
	msgs, err := c.App.Search(ctx, state)
	if err != nil {
		return err
	}
	for _, choice := range export.PickList(msgs) {
		fmt.Fprintln(c.Out, choice.Label)
	}
	return nil
}

type ExportCmd struct {
	Dir     string `arg:"" help:"Output directory" type:"path"`
	Keyword string `help:"Keyword matched in to, sender, subject and body"`
	FilterFlags
}

func (cmd *ExportCmd) Run(ctx context.Context, c *Context) error {
	state, err := cmd.State(cmd.Keyword)
	if err != nil {
		return err
	}
	paths, err := c.App.Export(ctx, cmd.Dir, state)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(c.Out, p)
	}
	fmt.Fprintf(c.Out, "Saved %d e-mails to %s\n", len(paths), cmd.Dir)
	return nil
}
