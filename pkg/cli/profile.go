package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/usecase/profile"
	"github.com/urfave/cli/v3"
)

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Inspect and update user profiles",
		Commands: []*cli.Command{
			profileShowCommand(),
			profileSetGoalCommand(),
			profileAddConcernCommand(),
		},
	}
}

func profileShowCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID to show",
			Sources:     cli.EnvVars("SOLACE_USER"),
			Destination: &userID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Print the personalization snapshot as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			snap, err := profile.New(repo).Snapshot(ctx, model.UserID(userID), time.Now())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func profileSetGoalCommand() *cli.Command {
	var (
		cfg    config
		userID string
		notes  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID to update",
			Sources:     cli.EnvVars("SOLACE_USER"),
			Destination: &userID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "notes",
			Aliases:     []string{"n"},
			Usage:       "Initial progress notes",
			Destination: &notes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "set-goal",
		Usage:     "Register a therapy goal",
		ArgsUsage: "<goal>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			goal := c.Args().First()
			if goal == "" {
				return goerr.New("goal is required")
			}

			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			return profile.New(repo).SetGoal(ctx, model.UserID(userID), goal, notes, time.Now())
		},
	}
}

func profileAddConcernCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID to update",
			Sources:     cli.EnvVars("SOLACE_USER"),
			Destination: &userID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "add-concern",
		Usage:     "Record a concern the user raised",
		ArgsUsage: "<concern>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			concern := c.Args().First()
			if concern == "" {
				return goerr.New("concern is required")
			}

			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			return profile.New(repo).AddConcern(ctx, model.UserID(userID), concern, time.Now())
		},
	}
}
