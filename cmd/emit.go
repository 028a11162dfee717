package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// EmitCommand creates the emit command
func EmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "emit",
		Usage:     "Log each argument as one message and flush",
		ArgsUsage: "MESSAGE...",
		Flags: append(loggerFlags(),
			&cli.StringFlag{
				Name:  "level",
				Usage: "Level of the messages (debug, info, warning, error, critical)",
				Value: "info",
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			return emitMessages(ctx, c)
		},
	}
}

func emitMessages(ctx context.Context, c *cli.Command) error {
	level, err := record.ParseLevel(c.String("level"))
	if err != nil {
		return err
	}
	messages := c.Args().Slice()
	if len(messages) == 0 {
		return errors.New("at least one message is required")
	}

	l, err := openLogger(ctx, c)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		l.Log(level, msg)
	}
	if err := l.Flush(ctx); err != nil {
		return fmt.Errorf("flushing: %w", err)
	}
	return nil
}
