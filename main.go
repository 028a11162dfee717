package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/cmd"
	"github.com/nyc-design/neil-logger/pkg/config"
	"github.com/nyc-design/neil-logger/pkg/process"
)

func main() {
	app := &cli.Command{
		Name:  "neil-logger",
		Usage: "Buffer log records per run and flush them to a document store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.EmitCommand(),
			cmd.ExecCommand(),
			cmd.FollowCommand(),
			cmd.ServeCommand(),
			cmd.RunsCommand(),
			cmd.ErrorsCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(),
		},
		// Exit codes are applied by process.Exit so exit hooks still run.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	process.Main(func(ctx context.Context) error {
		err := app.Run(ctx, os.Args)
		var exitCoder cli.ExitCoder
		if errors.As(err, &exitCoder) {
			if msg := exitCoder.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			process.Exit(exitCoder.ExitCode())
		}
		return err
	})
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get default config path: %v\n", err)
		os.Exit(process.ExitError)
	}
	return path
}
