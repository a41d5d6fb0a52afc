// Package blog loads the hand-written articles of the site's blog.
//
// Articles are Markdown files with YAML frontmatter. They are parsed once on
// load; a Store serves the published subset and can be reloaded when the
// files change.
package blog

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/slug"
)

const wordsPerMinute = 200

// uidNamespace seeds article UIDs derived from slugs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pavesite/blog"))

// hashExcluded frontmatter keys do not affect the content fingerprint.
var hashExcluded = map[string]bool{
	mdfp.FingerprintField: true,
	"lastmod":             true,
	"uid":                 true,
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

type frontMatter struct {
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	Lastmod     string   `yaml:"lastmod"`
	Author      string   `yaml:"author"`
	Tags        []string `yaml:"tags"`
	Image       string   `yaml:"image"`
	Draft       bool     `yaml:"draft"`
	UID         string   `yaml:"uid"`
	Fingerprint string   `yaml:"fingerprint"`
}

// Article is a parsed blog post. Articles are immutable once parsed.
type Article struct {
	UID            string
	Slug           string
	Title          string
	Description    string
	Author         string
	Image          string
	Tags           []string
	Date           time.Time
	Modified       time.Time
	Draft          bool
	Body           template.HTML
	Fingerprint    string
	ReadingMinutes int
	Source         string
}

// PublishedAt reports whether the article is visible at now.
func (a *Article) PublishedAt(now time.Time) bool {
	return !a.Draft && !a.Date.After(now)
}

// Parse builds an Article from a Markdown document. name is the file name
// and provides the slug when the frontmatter has none.
func Parse(name string, raw []byte) (*Article, error) {
	fail := func(msg string, err error) error {
		return errors.WrapError(err, errors.CategoryContent, msg).UserAction().WithContext("file", name).Build()
	}

	fmRaw, body, had, err := splitFrontmatter(raw)
	if err != nil {
		return nil, fail("invalid frontmatter", err)
	}
	if !had {
		return nil, fail("article has no frontmatter", nil)
	}

	var fm frontMatter
	dec := yaml.NewDecoder(bytes.NewReader(fmRaw))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil {
		return nil, fail("invalid frontmatter", err)
	}

	a := &Article{
		Slug:        fm.Slug,
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		Author:      fm.Author,
		Image:       fm.Image,
		Tags:        fm.Tags,
		Draft:       fm.Draft,
		Source:      name,
	}
	if a.Slug == "" {
		a.Slug = slug.Make(strings.TrimSuffix(path.Base(name), path.Ext(name)))
	}
	if !slug.Valid(a.Slug) {
		return nil, fail("article slug is not URL-safe", fmt.Errorf("slug %q", a.Slug))
	}
	if a.Title == "" {
		return nil, fail("article title is required", nil)
	}
	if a.Date, err = parseDate(fm.Date); err != nil {
		return nil, fail("article date is invalid", err)
	}
	a.Modified = a.Date
	if fm.Lastmod != "" {
		if a.Modified, err = parseDate(fm.Lastmod); err != nil {
			return nil, fail("article lastmod is invalid", err)
		}
	}

	var html bytes.Buffer
	if err := markdown.Convert(body, &html); err != nil {
		return nil, fail("markdown conversion failed", err)
	}
	a.Body = template.HTML(html.String()) //nolint:gosec // goldmark escapes raw HTML by default

	if a.Fingerprint, err = fingerprint(fmRaw, body); err != nil {
		return nil, fail("fingerprint failed", err)
	}

	a.UID = strings.TrimSpace(fm.UID)
	if a.UID == "" {
		a.UID = uuid.NewSHA1(uidNamespace, []byte(a.Slug)).String()
	}

	words := len(strings.Fields(string(body)))
	a.ReadingMinutes = max(1, int(math.Ceil(float64(words)/wordsPerMinute)))
	if a.Description == "" {
		a.Description = excerpt(body, 160)
	}
	return a, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// fingerprint hashes the frontmatter (minus bookkeeping keys) and body with mdfp.
func fingerprint(fmRaw, body []byte) (string, error) {
	fields := map[string]any{}
	if len(fmRaw) > 0 {
		if err := yaml.Unmarshal(fmRaw, &fields); err != nil {
			return "", err
		}
	}
	for k := range hashExcluded {
		delete(fields, k)
	}

	fmForHash := ""
	if len(fields) > 0 {
		out, err := yaml.Marshal(fields)
		if err != nil {
			return "", err
		}
		fmForHash = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fmForHash, string(body)), nil
}

// excerpt returns the first paragraph of plain text, cut at a word boundary.
func excerpt(body []byte, limit int) string {
	var para []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		para = append(para, line)
	}
	return Truncate(strings.Join(para, " "), limit)
}

// Truncate shortens s to at most limit runes, cutting at the last space and
// appending an ellipsis when anything was removed.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := string(r[:limit-1])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
