package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	ggit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/version"
)

// ManifestFile is written at the root of every export.
const ManifestFile = "build.json"

// Manifest describes one export.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	BuiltAt   time.Time `json:"built_at"`
	Version   string    `json:"version"`
	Revision  string    `json:"revision,omitempty"`
	BaseURL   string    `json:"base_url"`
	Pages     int       `json:"pages"`
	Paths     []string  `json:"paths"`
	LinksSeen int       `json:"links_checked"`
}

// Revision returns the HEAD commit of the git repository containing dir,
// or "" when dir is not inside a repository.
func Revision(dir string) string {
	if dir == "" {
		return ""
	}
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

func newManifest(id string, at time.Time, baseURL, revision string, paths []string) *Manifest {
	return &Manifest{
		BuildID:  id,
		BuiltAt:  at.UTC(),
		Version:  version.Version,
		Revision: revision,
		BaseURL:  baseURL,
		Pages:    len(paths),
		Paths:    paths,
	}
}

func (m *Manifest) write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode manifest").Build()
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write manifest").Build()
	}
	return nil
}

// ReadManifest loads the manifest of a previous export in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(filepath.Clean(dir), ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("no export manifest").WithContext("dir", dir).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read manifest").Build()
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid manifest").Build()
	}
	return &m, nil
}
