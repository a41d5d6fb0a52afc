package config

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Snapshot hashes the fields that change rendered output. Two processes with
// equal snapshots can share cached pages.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) {
		h.Write([]byte(strings.Join(parts, "=")))
		h.Write([]byte{0})
	}
	w("site.name", c.Site.Name)
	w("site.base_url", c.Site.BaseURL)
	w("site.phone", c.Site.Phone)
	w("site.email", c.Site.Email)
	w("site.image", c.Site.Image)
	w("site.twitter_handle", c.Site.TwitterHandle)
	w("content.registry_file", c.Content.RegistryFile)
	w("content.variants_dir", c.Content.VariantsDir)
	w("content.blog_dir", c.Content.BlogDir)
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKeyPrefix namespaces shared cache keys by the rendering snapshot.
func (c *Config) CacheKeyPrefix() string {
	return c.Cache.Prefix + c.Snapshot()[:12] + ":"
}
