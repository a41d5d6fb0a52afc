package export

import (
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

// Link is a reference found in an exported page.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// BrokenLink is an internal link whose target was not exported.
type BrokenLink struct {
	Page string `json:"page"`
	URL  string `json:"url"`
}

var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
}

// ExtractLinks returns every link-bearing attribute of an HTML document.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := getAttr(n, attr); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// internalPath returns the site path a link points to, or ok=false for
// external links, fragments and non-HTTP schemes.
func internalPath(link string, base *url.URL) (string, bool) {
	if link == "" || strings.HasPrefix(link, "#") ||
		strings.HasPrefix(link, "mailto:") ||
		strings.HasPrefix(link, "tel:") ||
		strings.HasPrefix(link, "javascript:") {
		return "", false
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if u.Host != "" && (base == nil || !strings.EqualFold(u.Host, base.Host)) {
		return "", false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if base != nil && base.Path != "" && base.Path != "/" {
		p = strings.TrimPrefix(p, strings.TrimRight(base.Path, "/"))
	}
	if !strings.HasPrefix(p, "/") {
		return "", false // relative links are not emitted by the layout
	}
	return path.Clean(p), true
}

// exported reports whether the site path p exists in the output at root.
func exported(root, p string) bool {
	target := filepath.Join(root, filepath.FromSlash(p))
	if fi, err := os.Stat(target); err == nil {
		if !fi.IsDir() {
			return true
		}
		_, err = os.Stat(filepath.Join(target, "index.html"))
		return err == nil
	}
	return false
}

// checkLinks verifies every internal link of every HTML file under root.
func checkLinks(root, baseURL string) (checked int, broken []BrokenLink, err error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return 0, nil, errors.WrapError(err, errors.CategoryConfig, "invalid base URL").
			WithContext("base_url", baseURL).
			Build()
	}
	seen := map[BrokenLink]bool{}
	err = filepath.WalkDir(root, func(file string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(file) != ".html" {
			return nil
		}
		f, err := os.Open(filepath.Clean(file))
		if err != nil {
			return err
		}
		links, err := ExtractLinks(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, file)
		for _, l := range links {
			p, ok := internalPath(l.URL, base)
			if !ok {
				continue
			}
			checked++
			if !exported(root, p) {
				b := BrokenLink{Page: filepath.ToSlash(rel), URL: l.URL}
				if !seen[b] {
					seen[b] = true
					broken = append(broken, b)
				}
			}
		}
		return nil
	})
	if err != nil {
		return checked, nil, errors.WrapError(err, errors.CategoryFileSystem, "link check failed").Build()
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].Page != broken[j].Page {
			return broken[i].Page < broken[j].Page
		}
		return broken[i].URL < broken[j].URL
	})
	return checked, broken, nil
}
