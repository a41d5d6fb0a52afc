package main

import (
	stderrors "errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pavesite/cmd/pavesite/commands"
	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("pavesite"),
		kong.Description("Serve, export and audit the church parking lot sealcoating site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		var perr *kong.ParseError
		if stderrors.As(err, &perr) {
			parser.FatalIfErrorf(err)
		}
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
		return
	}

	if err := kctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
