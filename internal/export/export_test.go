package export

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/buildlog"
	"git.home.luguber.info/inful/pavesite/internal/content"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/notify"
	"git.home.luguber.info/inful/pavesite/internal/page"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/seo"
)

func newAssembler(t *testing.T) *page.Assembler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	table, err := content.Default()
	require.NoError(t, err)
	store := blog.NewStore(blog.DefaultSource())
	require.NoError(t, store.Reload(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	asm, err := page.NewAssembler(page.Sources{Registry: reg, Table: table, Blog: store}, seo.Site{
		Name:    "Sanctuary Sealcoating",
		BaseURL: "https://example.org",
		Phone:   "+1-519-555-0100",
	})
	require.NoError(t, err)
	return asm
}

type memHistory struct {
	mu     sync.Mutex
	events []buildlog.EventType
}

func (h *memHistory) Append(_ context.Context, _ string, typ buildlog.EventType, _ any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, typ)
	return nil
}

type capturePublisher struct {
	notify.Noop
	events []notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, e notify.Event) error {
	p.events = append(p.events, e)
	return nil
}

type exportRecorder struct {
	metrics.NoopRecorder
	outcomes []metrics.ResultLabel
}

func (r *exportRecorder) IncExportOutcome(l metrics.ResultLabel) { r.outcomes = append(r.outcomes, l) }

func TestBuildWritesEveryPage(t *testing.T) {
	asm := newAssembler(t)
	out := filepath.Join(t.TempDir(), "public")
	hist := &memHistory{}
	pub := &capturePublisher{}
	rec := &exportRecorder{}

	res, err := New(asm, Options{OutputDir: out, Concurrency: 3},
		WithHistory(hist), WithPublisher(pub), WithRecorder(rec)).Build(context.Background())
	require.NoError(t, err)

	paths := asm.Paths()
	assert.Equal(t, len(paths), res.Manifest.Pages)
	assert.Positive(t, res.Manifest.LinksSeen)
	for _, p := range paths {
		assert.FileExists(t, pageFile(out, p), p)
	}
	for _, f := range []string{"sitemap.xml", "robots.txt", "404.html", ManifestFile} {
		assert.FileExists(t, filepath.Join(out, f))
	}

	city, err := os.ReadFile(filepath.Join(out, "locations", "guelph", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(city), "Guelph")

	m, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, res.Manifest.BuildID, m.BuildID)
	assert.Equal(t, "https://example.org", m.BaseURL)

	assert.Equal(t, []buildlog.EventType{
		buildlog.BuildStarted, buildlog.PagesRendered, buildlog.LinksChecked, buildlog.BuildCompleted,
	}, hist.events)
	require.Len(t, pub.events, 1)
	assert.Equal(t, notify.SitePublished, pub.events[0].Type)
	assert.Equal(t, m.BuildID, pub.events[0].BuildID)
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, rec.outcomes)
}

func TestBuildReplacesPreviousOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(out, 0o750))
	stale := filepath.Join(out, "stale.html")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err := New(newAssembler(t), Options{OutputDir: out}).Build(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory should be gone")
}

func TestBuildCanceledKeepsOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(out, 0o750))
	keep := filepath.Join(out, "index.html")
	require.NoError(t, os.WriteFile(keep, []byte("live"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hist := &memHistory{}
	rec := &exportRecorder{}
	_, err := New(newAssembler(t), Options{OutputDir: out}, WithHistory(hist), WithRecorder(rec)).Build(ctx)
	require.Error(t, err)

	data, rerr := os.ReadFile(keep)
	require.NoError(t, rerr)
	assert.Equal(t, "live", string(data))
	assert.Equal(t, buildlog.BuildFailed, hist.events[len(hist.events)-1])
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultCanceled}, rec.outcomes)
}

func TestPromoteRestoresPreviousOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	require.NoError(t, writeFile(filepath.Join(out, "index.html"), []byte("old")))

	err := promote(filepath.Join(dir, ".public-missing"), out)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestPromoteReplacesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	stage := filepath.Join(dir, ".public-stage")
	require.NoError(t, writeFile(filepath.Join(out, "stale.html"), []byte("old")))
	require.NoError(t, writeFile(filepath.Join(stage, "index.html"), []byte("new")))

	require.NoError(t, promote(stage, out))

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.NoFileExists(t, filepath.Join(out, "stale.html"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "public", entries[0].Name())
}

func TestPromoteWithoutPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	stage := filepath.Join(dir, ".public-stage")
	require.NoError(t, writeFile(filepath.Join(stage, "index.html"), []byte("new")))

	require.NoError(t, promote(stage, out))
	assert.FileExists(t, filepath.Join(out, "index.html"))
}

func TestWriteFileCreatesReadableDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(pageFile(dir, "/locations/guelph"), []byte("x")))

	// compare against a directory made with 0755 under the same umask
	ref := filepath.Join(dir, "ref")
	require.NoError(t, os.Mkdir(ref, 0o755))
	want, err := os.Stat(ref)
	require.NoError(t, err)

	for _, p := range []string{"locations", "locations/guelph"} {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p)))
		require.NoError(t, err)
		assert.Equal(t, want.Mode().Perm(), info.Mode().Perm(), p)
	}
}

func TestBuildRequiresOutputDir(t *testing.T) {
	_, err := New(newAssembler(t), Options{}).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestExtractLinks(t *testing.T) {
	doc := `<html><head><link rel="canonical" href="https://example.org/blog"></head>
<body><a href="/locations">x</a><img src="/img/a.png"><a>no href</a>
<script src="https://cdn.example.com/x.js"></script></body></html>`
	links, err := ExtractLinks(strings.NewReader(doc))
	require.NoError(t, err)
	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{
		"https://example.org/blog", "/locations", "/img/a.png", "https://cdn.example.com/x.js",
	}, urls)
}

func TestInternalPath(t *testing.T) {
	base := mustURL(t, "https://example.org")
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"/locations/guelph", "/locations/guelph", true},
		{"/locations/guelph/", "/locations/guelph", true},
		{"https://example.org/blog?x=1#top", "/blog", true},
		{"https://EXAMPLE.org/", "/", true},
		{"https://other.org/blog", "", false},
		{"mailto:a@example.org", "", false},
		{"tel:+15195550100", "", false},
		{"#main", "", false},
		{"javascript:void(0)", "", false},
		{"page.html", "", false},
	}
	for _, tt := range tests {
		got, ok := internalPath(tt.link, base)
		assert.Equal(t, tt.ok, ok, tt.link)
		assert.Equal(t, tt.want, got, tt.link)
	}
}

func TestCheckLinksFindsBrokenTargets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(root, "index.html"),
		[]byte(`<a href="/about">a</a><a href="/missing">m</a><a href="/missing">again</a><a href="/sitemap.xml">s</a>`)))
	require.NoError(t, writeFile(filepath.Join(root, "about", "index.html"), []byte(`<a href="/">home</a>`)))
	require.NoError(t, writeFile(filepath.Join(root, "sitemap.xml"), []byte(`<urlset/>`)))

	checked, broken, err := checkLinks(root, "https://example.org")
	require.NoError(t, err)
	assert.Equal(t, 5, checked)
	assert.Equal(t, []BrokenLink{{Page: "index.html", URL: "/missing"}}, broken)
}

func TestRevision(t *testing.T) {
	assert.Empty(t, Revision(""))
	assert.Empty(t, Revision(t.TempDir()))

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posts"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts", "a.md"), []byte("---\ntitle: A\n---\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("posts/a.md")
	require.NoError(t, err)
	hash, err := wt.Commit("add post", &git.CommitOptions{
		Author: &object.Signature{Name: "Editor", Email: "editor@example.org", When: time.Now()},
	})
	require.NoError(t, err)

	assert.Equal(t, hash.String(), Revision(filepath.Join(dir, "posts")))
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
