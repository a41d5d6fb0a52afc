package blog

import (
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
)

//go:embed posts/*.md
var defaultPosts embed.FS

// DefaultSource returns the articles embedded in the binary.
func DefaultSource() fs.FS {
	sub, err := fs.Sub(defaultPosts, "posts")
	if err != nil {
		panic(err) // embed pattern guarantees the directory
	}
	return sub
}

// DirSource reads articles from a directory on disk.
func DirSource(dir string) fs.FS {
	return os.DirFS(dir)
}

// Store serves the published articles of a source. It is safe for
// concurrent use; Reload and Refresh swap the article set atomically.
type Store struct {
	source fs.FS

	mu        sync.RWMutex
	all       []*Article // newest first
	published []*Article
	bySlug    map[string]*Article
	asOf      time.Time
}

// NewStore creates a store over source. Call Reload before use.
func NewStore(source fs.FS) *Store {
	return &Store{source: source, bySlug: map[string]*Article{}}
}

// Reload re-reads every *.md file of the source and republishes as of now.
// On error the previous article set stays in place.
func (s *Store) Reload(now time.Time) error {
	names, err := fs.Glob(s.source, "*.md")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list articles").Build()
	}

	var (
		articles []*Article
		problems []error
		seen     = map[string]string{}
	)
	for _, name := range names {
		raw, err := fs.ReadFile(s.source, name)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		a, err := Parse(name, raw)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if prev, dup := seen[a.Slug]; dup {
			problems = append(problems, fmt.Errorf("%s: slug %q already used by %s", name, a.Slug, prev))
			continue
		}
		seen[a.Slug] = name
		articles = append(articles, a)
	}
	if len(problems) > 0 {
		return errors.WrapError(stderrors.Join(problems...), errors.CategoryContent, "failed to load articles").
			UserAction().
			WithContext("failures", len(problems)).
			Build()
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].Date.Equal(articles[j].Date) {
			return articles[i].Date.After(articles[j].Date)
		}
		return articles[i].Slug < articles[j].Slug
	})

	s.mu.Lock()
	s.all = articles
	s.publishLocked(now)
	s.mu.Unlock()

	slog.Info("Articles loaded", logfields.Count(len(articles)))
	return nil
}

// Refresh recomputes the published set for now, making scheduled articles
// visible once their date has passed. It reports whether the set changed.
func (s *Store) Refresh(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.published
	s.publishLocked(now)
	return !slices.EqualFunc(before, s.published, func(a, b *Article) bool {
		return a.Slug == b.Slug && a.Fingerprint == b.Fingerprint
	})
}

func (s *Store) publishLocked(now time.Time) {
	published := make([]*Article, 0, len(s.all))
	bySlug := make(map[string]*Article, len(s.all))
	for _, a := range s.all {
		if a.PublishedAt(now) {
			published = append(published, a)
			bySlug[a.Slug] = a
		}
	}
	s.published = published
	s.bySlug = bySlug
	s.asOf = now
}

// Published returns visible articles, newest first.
func (s *Store) Published() []*Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.published)
}

// Get returns a published article by slug.
func (s *Store) Get(slug string) (*Article, error) {
	s.mu.RLock()
	a, ok := s.bySlug[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("article not found").WithContext("slug", slug).Build()
	}
	return a, nil
}

// Pending returns articles that are neither drafts nor yet published.
func (s *Store) Pending() []*Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Article
	for _, a := range s.all {
		if !a.Draft && a.Date.After(s.asOf) {
			out = append(out, a)
		}
	}
	return out
}
