package blog

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

func post(title, date string, extra ...string) *fstest.MapFile {
	fm := "---\ntitle: " + title + "\ndate: " + date + "\n"
	for _, e := range extra {
		fm += e + "\n"
	}
	return &fstest.MapFile{Data: []byte(fm + "---\nBody text.\n")}
}

func slugs(articles []*Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Slug)
	}
	return out
}

func TestStorePublished(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fstest.MapFS{
		"old.md":    post("Old", "2025-01-01"),
		"new.md":    post("New", "2025-05-01"),
		"future.md": post("Future", "2025-07-01"),
		"draft.md":  post("Draft", "2025-02-01", "draft: true"),
		"notes.txt": &fstest.MapFile{Data: []byte("ignored")},
	}
	s := NewStore(src)
	require.NoError(t, s.Reload(now))

	assert.Equal(t, []string{"new", "old"}, slugs(s.Published()))
	assert.Equal(t, []string{"future"}, slugs(s.Pending()))

	a, err := s.Get("old")
	require.NoError(t, err)
	assert.Equal(t, "Old", a.Title)

	for _, hidden := range []string{"future", "draft", "missing"} {
		_, err := s.Get(hidden)
		assert.True(t, errors.IsNotFound(err), hidden)
	}
}

func TestStoreRefreshPublishesScheduled(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(fstest.MapFS{
		"a.md": post("A", "2025-05-01"),
		"b.md": post("B", "2025-06-02"),
	})
	require.NoError(t, s.Reload(now))
	require.Len(t, s.Published(), 1)

	assert.False(t, s.Refresh(now.Add(time.Hour)))
	assert.True(t, s.Refresh(now.Add(48*time.Hour)))
	assert.Equal(t, []string{"b", "a"}, slugs(s.Published()))
	assert.Empty(t, s.Pending())
}

func TestStoreRefreshDetectsSameSizeChange(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(fstest.MapFS{"a.md": post("A", "2025-05-01")})
	require.NoError(t, s.Reload(now))

	other, err := Parse("c.md", post("C", "2025-05-02").Data)
	require.NoError(t, err)
	s.mu.Lock()
	s.all = []*Article{other}
	s.mu.Unlock()

	assert.True(t, s.Refresh(now))
	assert.Equal(t, []string{"c"}, slugs(s.Published()))
	assert.False(t, s.Refresh(now))
}

func TestStoreRefreshBackwardsClock(t *testing.T) {
	now := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	s := NewStore(fstest.MapFS{
		"a.md": post("A", "2025-05-01"),
		"b.md": post("B", "2025-06-02"),
	})
	require.NoError(t, s.Reload(now))
	require.Len(t, s.Published(), 2)

	assert.True(t, s.Refresh(now.Add(-48*time.Hour)))
	assert.Equal(t, []string{"a"}, slugs(s.Published()))
}

func TestStoreReloadKeepsPreviousOnError(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := fstest.MapFS{"a.md": post("A", "2025-05-01")}
	s := NewStore(src)
	require.NoError(t, s.Reload(now))

	src["b.md"] = post("B", "2025-05-02", "slug: a")
	err := s.Reload(now)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryContent))
	assert.Equal(t, []string{"a"}, slugs(s.Published()))
}

func TestDefaultSource(t *testing.T) {
	s := NewStore(DefaultSource())
	require.NoError(t, s.Reload(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	published := s.Published()
	require.NotEmpty(t, published)
	for _, a := range published {
		assert.NotEmpty(t, a.Title, a.Source)
		assert.NotEmpty(t, a.Description, a.Source)
	}
}
