package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/variant"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	src, err := loadSources(root.Settings(), time.Now())
	if err != nil {
		return err
	}
	out := g.out()
	fmt.Fprintf(out, "Registry: %d cities in %d regions\n", src.Registry.Len(), len(src.Registry.Regions()))
	fmt.Fprintf(out, "Variants: %d sections x %d variants rendered against every city\n",
		len(src.Table.Sections()), variant.Count)
	fmt.Fprintf(out, "Blog: %d published, %d scheduled or draft\n",
		len(src.Blog.Published()), len(src.Blog.Pending()))
	fmt.Fprintln(out, "Content is valid")
	return nil
}
