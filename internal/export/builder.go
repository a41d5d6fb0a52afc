// Package export renders the whole site to static files.
package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pavesite/internal/buildlog"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/notify"
	"git.home.luguber.info/inful/pavesite/internal/page"
)

// DefaultConcurrency bounds page rendering when Options.Concurrency is unset.
const DefaultConcurrency = 4

// History records build lifecycle events. *buildlog.Store implements it.
type History interface {
	Append(ctx context.Context, buildID string, typ buildlog.EventType, payload any) error
}

// Options configure a Builder.
type Options struct {
	OutputDir   string
	Concurrency int
	// ContentDir locates the git repository whose HEAD is recorded in the manifest.
	ContentDir string
	// SkipLinkCheck disables broken-link detection.
	SkipLinkCheck bool
}

// Option customizes a Builder.
type Option func(*Builder)

// WithHistory records build events.
func WithHistory(h History) Option { return func(b *Builder) { b.history = h } }

// WithPublisher announces finished exports.
func WithPublisher(p notify.Publisher) Option { return func(b *Builder) { b.publisher = p } }

// WithRecorder reports export metrics.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// Builder exports an assembled site.
type Builder struct {
	asm       *page.Assembler
	opts      Options
	history   History
	publisher notify.Publisher
	recorder  metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// Result is the outcome of a successful build.
type Result struct {
	Manifest *Manifest
	Duration time.Duration
}

// New returns a Builder for asm.
func New(asm *page.Assembler, opts Options, options ...Option) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	b := &Builder{
		asm:       asm,
		opts:      opts,
		publisher: notify.Noop{},
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Build renders every page into a staging directory, checks its links and
// replaces OutputDir with it. OutputDir is left untouched when the build fails.
func (b *Builder) Build(ctx context.Context) (res *Result, err error) {
	if b.opts.OutputDir == "" {
		return nil, errors.ConfigError("output directory is required").Build()
	}
	start := b.now()
	id := uuid.NewString()
	log := b.logger.With(logfields.BuildID(id))
	b.record(ctx, id, buildlog.BuildStarted, map[string]any{"output": b.opts.OutputDir})
	b.recorder.SetExportConcurrency(b.opts.Concurrency)

	stage, err := b.stagingDir()
	if err != nil {
		return nil, err
	}
	defer func() {
		elapsed := b.now().Sub(start)
		b.recorder.ObserveExportDuration(elapsed)
		b.recorder.IncExportOutcome(exportResult(err))
		if err != nil {
			_ = os.RemoveAll(stage)
			b.record(context.WithoutCancel(ctx), id, buildlog.BuildFailed, map[string]any{"error": err.Error()})
			log.Error("Export failed", logfields.Error(err))
		}
	}()

	paths := b.asm.Paths()
	if err = b.renderPages(ctx, stage, paths); err != nil {
		return nil, err
	}
	if err = b.writeExtras(stage); err != nil {
		return nil, err
	}
	b.record(ctx, id, buildlog.PagesRendered, map[string]any{"pages": len(paths)})
	log.Info("Pages rendered", logfields.Count(len(paths)))

	site := b.asm.Site()
	m := newManifest(id, start, site.BaseURL, Revision(b.opts.ContentDir), paths)
	if !b.opts.SkipLinkCheck {
		checked, broken, lerr := checkLinks(stage, site.BaseURL)
		if lerr != nil {
			return nil, lerr
		}
		m.LinksSeen = checked
		b.record(ctx, id, buildlog.LinksChecked, map[string]any{"checked": checked, "broken": len(broken)})
		if len(broken) > 0 {
			for _, bl := range broken {
				log.Warn("Broken internal link", slog.String("page", bl.Page), slog.String("url", bl.URL))
			}
			return nil, errors.ContentError("exported site has broken internal links").
				WithContext("broken", broken).
				Build()
		}
	}
	if err = m.write(stage); err != nil {
		return nil, err
	}
	if err = promote(stage, b.opts.OutputDir); err != nil {
		return nil, err
	}

	res = &Result{Manifest: m, Duration: b.now().Sub(start)}
	b.record(ctx, id, buildlog.BuildCompleted, map[string]any{"pages": m.Pages, "revision": m.Revision})
	if perr := b.publisher.Publish(ctx, notify.Event{
		Type:      notify.SitePublished,
		BuildID:   id,
		Pages:     m.Pages,
		BaseURL:   site.BaseURL,
		Revision:  m.Revision,
		Timestamp: b.now().UTC(),
	}); perr != nil {
		log.Warn("Failed to publish build notification", logfields.Error(perr))
	}
	log.Info("Export complete",
		logfields.Count(m.Pages),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000),
		slog.String("output", b.opts.OutputDir))
	return res, nil
}

func (b *Builder) renderPages(ctx context.Context, stage string, paths []string) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.opts.Concurrency)
	for _, p := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			pg, err := b.asm.Resolve(egCtx, p)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := b.asm.Render(&buf, pg); err != nil {
				return err
			}
			return writeFile(pageFile(stage, p), buf.Bytes())
		})
	}
	return eg.Wait()
}

func (b *Builder) writeExtras(stage string) error {
	sm, err := b.asm.Sitemap()
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(stage, "sitemap.xml"), sm); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(stage, "robots.txt"), b.asm.Robots()); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := b.asm.Render(&buf, b.asm.NotFound("/404.html")); err != nil {
		return err
	}
	return writeFile(filepath.Join(stage, "404.html"), buf.Bytes())
}

func (b *Builder) record(ctx context.Context, id string, typ buildlog.EventType, payload any) {
	if b.history == nil {
		return
	}
	if err := b.history.Append(ctx, id, typ, payload); err != nil {
		b.logger.Warn("Failed to record build event",
			logfields.BuildID(id),
			slog.String("event", string(typ)),
			logfields.Error(err))
	}
}

func (b *Builder) stagingDir() (string, error) {
	out := filepath.Clean(b.opts.OutputDir)
	parent := filepath.Dir(out)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to create output parent").
			WithContext("dir", parent).
			Build()
	}
	dir, err := os.MkdirTemp(parent, "."+filepath.Base(out)+"-")
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging directory").Build()
	}
	if err := os.Chmod(dir, 0o755); err != nil { //nolint:gosec // served as a public web root
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to prepare staging directory").Build()
	}
	return dir, nil
}

// pageFile maps a site path to its index.html inside root.
func pageFile(root, p string) string {
	rel := strings.Trim(p, "/")
	return filepath.Join(root, filepath.FromSlash(rel), "index.html")
}

func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil { //nolint:gosec // public site directories
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").
			WithContext("path", name).
			Build()
	}
	if err := os.WriteFile(name, data, 0o644); err != nil { //nolint:gosec // public site files
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write file").
			WithContext("path", name).
			Build()
	}
	return nil
}

// promote replaces out with stage. The previous output is moved aside and
// restored if stage cannot be moved into place.
func promote(stage, out string) error {
	previous := stage + ".previous"
	hadPrevious := true
	if err := os.Rename(out, previous); err != nil {
		if !os.IsNotExist(err) {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to move previous output aside").
				WithContext("dir", out).
				Build()
		}
		hadPrevious = false
	}
	if err := os.Rename(stage, out); err != nil {
		if hadPrevious {
			if rerr := os.Rename(previous, out); rerr != nil {
				slog.Error("Failed to restore previous output",
					slog.String("dir", out), slog.String("saved", previous), logfields.Error(rerr))
			}
		}
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to move export into place").
			WithContext("dir", out).
			Build()
	}
	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			slog.Warn("Failed to remove previous output", slog.String("dir", previous), logfields.Error(err))
		}
	}
	return nil
}

func exportResult(err error) metrics.ResultLabel {
	if err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		return metrics.ResultCanceled
	}
	return metrics.ResultFor(err, errors.IsNotFound)
}
