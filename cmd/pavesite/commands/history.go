package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/buildlog"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of builds to list"`
	Build string `arg:"" optional:"" help:"Show the events of one build"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	store, err := buildlog.Open(root.Settings().Build.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	if h.Build != "" {
		events, err := store.Events(ctx, h.Build)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "TIME\tEVENT\tPAYLOAD")
		for _, e := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Payload)
		}
		return tw.Flush()
	}

	builds, err := store.Builds(ctx, h.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Fprintln(g.out(), "No builds recorded")
		return nil
	}
	fmt.Fprintln(tw, "BUILD\tSTARTED\tOUTCOME\tPAGES\tDURATION\tERROR")
	for _, b := range builds {
		dur := "-"
		if !b.Finished.IsZero() {
			dur = b.Finished.Sub(b.Started).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			b.BuildID, b.Started.Format(time.RFC3339), b.Outcome, b.Pages, dur, b.Error)
	}
	return tw.Flush()
}
