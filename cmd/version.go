package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/version"
)

// VersionCommand creates the version command
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Include toolchain and revision",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				fmt.Println(version.Details())
				return nil
			}
			fmt.Println(version.BuildVersion())
			return nil
		},
	}
}
