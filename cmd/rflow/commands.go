package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rflow/browse"
	"rflow/config"
	"rflow/measure"
	"rflow/misc"
	"rflow/state"
)

const sourceHelp = `
SOURCE:
    work to paginate, following formats are supported:
        EPUB archive: "[path_to_file]book.epub"
        exploded EPUB: "[path_to_directory]directory" with META-INF/container.xml
        directory of XHTML documents, read in natural order of file names
        single XHTML document: "[path_to_file]chapter.xhtml"

    Fixed layout (pre-paginated) works are refused.
`

const dumpHelp = `
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Without --default prints configuration in effect: embedded defaults merged
with values from configuration file.
`

func envVar(name string) cli.ValueSourceChain {
	return cli.EnvVars(strings.ToUpper(misc.GetAppName()) + "_" + name)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "column pagination of reflowable EPUB content in a real browser",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          setup,
		After:           teardown,
		OnUsageError:    usageError,
		ExitErrHandler:  logExitError,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Sources: envVar("CONFIG"), Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Sources: envVar("DEBUG"), Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "measure",
				Usage:        "Paginates every content unit of the work(s) and reports column and spread counts",
				OnUsageError: usageError,
				Action:       measure.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"},
						Usage: "results `FORMAT`, overrides configuration (supported: " + strings.Join(config.ReportFormatNames(), ", ") + ")"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"},
						Usage: "write results to `PATH`, existing directory gets a file per work (default STDOUT)"},
					&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Sources: envVar("JOBS"),
						Usage: "number of works measured concurrently, each uses its own browser (default number of CPUs)"},
				},
				ArgsUsage:          "SOURCE [SOURCE...]",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:         "browse",
				Usage:        "Interactive terminal view of the paginated work",
				OnUsageError: usageError,
				Action:       browse.Run,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "width", Usage: "browser viewport `WIDTH`, overrides configuration"},
					&cli.IntFlag{Name: "height", Usage: "browser viewport `HEIGHT`, overrides configuration"},
				},
				ArgsUsage:          "SOURCE",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError:       usageError,
				Action:             dumpConfig,
				ArgsUsage:          "DESTINATION",
				CustomHelpTemplate: cli.CommandHelpTemplate + dumpHelp,
			},
		},
	}
}

// logExitError runs before teardown, while log is still open.
func logExitError(ctx context.Context, _ *cli.Command, err error) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Error("Program ended with error", zap.Error(err))
		errLogged = true
	}
}

func usageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func unknownCommand(ctx context.Context, _ *cli.Command, name string) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname, out := cmd.Args().Get(0), os.Stdout
	if len(fname) > 0 {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() { err = multierr.Append(err, out.Close()) }()
	} else {
		fname = "STDOUT"
	}
	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
