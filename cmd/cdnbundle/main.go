package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cdnbundle/cmd/cdnbundle/commands"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("cdnbundle"),
		kong.Description("Bundle an SDK for the browser and publish it to a git-backed CDN."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	if err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Report(os.Stderr, err))
	}
}
