package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/solace/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func checkinCommand() *cli.Command {
	var (
		cfg        config
		inactivity time.Duration
		watch      bool
		interval   time.Duration
	)

	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "inactivity",
			Usage:       "Silence span before a user is due a check-in",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("SOLACE_INACTIVITY"),
			Destination: &inactivity,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Aliases:     []string{"w"},
			Usage:       "Keep scanning on an interval instead of a single pass",
			Destination: &watch,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Scan interval in watch mode",
			Value:       15 * time.Minute,
			Destination: &interval,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "checkin",
		Usage: "Scan for quiet users and emit proactive check-in bundles",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc, err := cfg.newOrchestrator(ctx, repo)
			if err != nil {
				return err
			}

			scheduler := chat.NewScheduler(uc, chat.WithInactivity(inactivity))

			if watch {
				return scheduler.Run(ctx, interval)
			}

			bundles, err := scheduler.Scan(ctx, time.Now())
			if err != nil {
				return err
			}

			out := c.Root().Writer
			for _, bundle := range bundles {
				fmt.Fprintf(out, "%s: [%s] %s\n",
					bundle.UserID, bundle.Decision.RuleID, bundle.Decision.Question)
			}
			fmt.Fprintf(out, "%d check-in(s) due\n", len(bundles))
			return nil
		},
	}
}
