package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/buildlog"
	"git.home.luguber.info/inful/pavesite/internal/config"
	"git.home.luguber.info/inful/pavesite/internal/export"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/notify"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides build.output_dir)"`
	Concurrency int    `short:"j" help:"Pages rendered in parallel (overrides build.concurrency)"`
	NoLinkCheck bool   `name:"no-link-check" help:"Skip internal link verification"`
	NoHistory   bool   `name:"no-history" help:"Do not record the build in the history database"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := root.Settings()
	if b.Output != "" {
		cfg.Build.OutputDir = b.Output
	}
	if b.Concurrency > 0 {
		cfg.Build.Concurrency = b.Concurrency
	}
	if b.NoLinkCheck {
		cfg.Build.SkipLinkCheck = true
	}

	res, err := runBuild(ctx, cfg, !b.NoHistory)
	if err != nil {
		return err
	}
	m := res.Manifest
	fmt.Fprintf(g.out(), "Exported %d pages to %s in %s (build %s)\n",
		m.Pages, cfg.Build.OutputDir, res.Duration.Round(time.Millisecond), m.BuildID)
	if m.Revision != "" {
		fmt.Fprintf(g.out(), "Content revision %s\n", m.Revision)
	}
	return nil
}

func runBuild(ctx context.Context, cfg *config.Config, record bool) (*export.Result, error) {
	asm, err := newAssembler(cfg, metrics.NoopRecorder{})
	if err != nil {
		return nil, err
	}

	opts := []export.Option{export.WithLogger(slog.Default())}
	if record {
		history, err := buildlog.Open(cfg.Build.HistoryDB)
		if err != nil {
			return nil, err
		}
		defer func() { _ = history.Close() }()
		opts = append(opts, export.WithHistory(history))
	}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATS(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Publish notifications disabled", logfields.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			opts = append(opts, export.WithPublisher(pub))
		}
	}

	return export.New(asm, export.Options{
		OutputDir:     cfg.Build.OutputDir,
		Concurrency:   cfg.Build.Concurrency,
		ContentDir:    contentRoot(cfg),
		SkipLinkCheck: cfg.Build.SkipLinkCheck,
	}, opts...).Build(ctx)
}
