// Package content holds the pre-authored variant table for city landing
// pages and renders a selected variant with a city's attributes.
//
// Each page section has exactly variant.Count hand-written variants,
// authored as html/template snippets in one YAML file per section.
package content

import (
	"bytes"
	"embed"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/variant"
)

//go:embed variants/*.yaml
var defaultVariants embed.FS

// Variant is one authored alternative for a section.
type Variant struct {
	Index   variant.Index `yaml:"index"`
	Heading string        `yaml:"heading"`
	Body    string        `yaml:"body"`

	heading *template.Template
	body    *template.Template
}

type sectionFile struct {
	Section  variant.Section `yaml:"section"`
	Variants []*Variant      `yaml:"variants"`
}

// Table maps every section to its variants, stored by slot (index-1).
type Table struct {
	sections map[variant.Section][variant.Count]*Variant
}

// Default loads the variants embedded in the binary.
func Default() (*Table, error) {
	sub, err := fs.Sub(defaultVariants, "variants")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "embedded variants missing").Build()
	}
	return Load(sub)
}

// LoadDir loads "<section>.yaml" files from dir.
func LoadDir(dir string) (*Table, error) {
	return Load(os.DirFS(dir))
}

// Load reads one "<section>.yaml" per canonical section from fsys and checks
// that each section has exactly variant.Count variants indexed 1..Count.
func Load(fsys fs.FS) (*Table, error) {
	t := &Table{sections: make(map[variant.Section][variant.Count]*Variant)}

	var problems []error
	for _, section := range variant.Sections() {
		name := string(section) + ".yaml"
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = append(problems, fmt.Errorf("section %s: %w", section, err))
			continue
		}
		slots, err := parseSection(section, raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		t.sections[section] = slots
	}

	if len(problems) > 0 {
		return nil, errors.WrapError(stderrors.Join(problems...), errors.CategoryContent, "variant table is incomplete").
			UserAction().
			Build()
	}
	return t, nil
}

func parseSection(section variant.Section, raw []byte) ([variant.Count]*Variant, error) {
	var slots [variant.Count]*Variant

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f sectionFile
	if err := dec.Decode(&f); err != nil {
		return slots, fmt.Errorf("decode: %w", err)
	}
	if f.Section != section {
		return slots, fmt.Errorf("declares section %q", f.Section)
	}
	if len(f.Variants) != variant.Count {
		return slots, fmt.Errorf("has %d variants, want %d", len(f.Variants), variant.Count)
	}

	for _, v := range f.Variants {
		if !v.Index.Valid() {
			return slots, fmt.Errorf("variant index %d outside [1,%d]", v.Index, variant.Count)
		}
		if slots[v.Index.Slot()] != nil {
			return slots, fmt.Errorf("variant %d defined twice", v.Index)
		}
		if strings.TrimSpace(v.Body) == "" {
			return slots, fmt.Errorf("variant %d has an empty body", v.Index)
		}
		name := fmt.Sprintf("%s-%d", section, v.Index)
		var err error
		if v.heading, err = parseTemplate(name+"-heading", v.Heading); err != nil {
			return slots, err
		}
		if v.body, err = parseTemplate(name, v.Body); err != nil {
			return slots, err
		}
		slots[v.Index.Slot()] = v
	}
	return slots, nil
}

var funcs = template.FuncMap{
	// Casers are stateful, so each call gets its own.
	"title": func(s string) string { return cases.Title(language.English).String(s) },
	"names": joinNames,
}

func parseTemplate(name, src string) (*template.Template, error) {
	return template.New(name).Funcs(funcs).Option("missingkey=error").Parse(src)
}

// joinNames renders "A", "A and B" or "A, B and C".
func joinNames(cities []registry.City) string {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = c.Name
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// Variant returns the authored variant for a section and index.
func (t *Table) Variant(section variant.Section, idx variant.Index) (*Variant, error) {
	slots, ok := t.sections[section]
	if !ok {
		return nil, errors.NotFound("unknown page section").WithContext("section", string(section)).Build()
	}
	if !idx.Valid() {
		return nil, errors.InternalError("variant index out of range").
			WithContext("section", string(section)).
			WithContext("index", int(idx)).
			Build()
	}
	return slots[idx.Slot()], nil
}

// Sections lists the sections present in the table in page order.
func (t *Table) Sections() []variant.Section {
	var out []variant.Section
	for _, s := range variant.Sections() {
		if _, ok := t.sections[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
