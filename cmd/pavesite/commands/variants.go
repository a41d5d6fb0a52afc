package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/variant"
)

// VariantsCmd implements the 'variants' command.
type VariantsCmd struct {
	Cities   []string `arg:"" optional:"" name:"city" help:"City slugs (default: every city)"`
	Sections []string `short:"s" name:"section" help:"Sections to show (default: every section)"`
	JSON     bool     `help:"Print JSON instead of a table"`
}

// VariantRow is the selection for one city.
type VariantRow struct {
	City     string         `json:"city"`
	Variants map[string]int `json:"variants"`
}

func (v *VariantsCmd) Run(g *Global, root *CLI) error {
	reg, err := loadRegistry(root.Settings())
	if err != nil {
		return err
	}
	sections, err := v.sections()
	if err != nil {
		return err
	}
	cities, err := v.cities(reg)
	if err != nil {
		return err
	}

	rows := make([]VariantRow, 0, len(cities))
	for _, slug := range cities {
		row := VariantRow{City: slug, Variants: make(map[string]int, len(sections))}
		for _, s := range sections {
			row.Variants[string(s)] = int(variant.Select(slug, s))
		}
		rows = append(rows, row)
	}

	if v.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "CITY")
	for _, s := range sections {
		fmt.Fprintf(tw, "\t%s", s)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		fmt.Fprint(tw, row.City)
		for _, s := range sections {
			fmt.Fprintf(tw, "\t%d", row.Variants[string(s)])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func (v *VariantsCmd) sections() ([]variant.Section, error) {
	if len(v.Sections) == 0 {
		return variant.Sections(), nil
	}
	out := make([]variant.Section, 0, len(v.Sections))
	for _, raw := range v.Sections {
		s := variant.Section(raw)
		if !s.Known() {
			return nil, errors.ValidationError("unknown section").
				WithContext("section", raw).
				WithContext("known", variant.Sections()).
				UserAction().
				Build()
		}
		out = append(out, s)
	}
	return out, nil
}

func (v *VariantsCmd) cities(reg *registry.Registry) ([]string, error) {
	if len(v.Cities) == 0 {
		all := reg.Cities()
		out := make([]string, 0, len(all))
		for _, c := range all {
			out = append(out, c.Slug)
		}
		return out, nil
	}
	for _, slug := range v.Cities {
		if _, err := reg.City(slug); err != nil {
			return nil, err
		}
	}
	return v.Cities, nil
}
