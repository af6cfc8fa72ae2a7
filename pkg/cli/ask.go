package cli

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID the message belongs to",
			Sources:     cli.EnvVars("SOLACE_USER"),
			Destination: &userID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Process one message and print the context bundle as JSON",
		ArgsUsage: "<message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if message == "" {
				return goerr.New("message is required")
			}

			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc, err := cfg.newOrchestrator(ctx, repo)
			if err != nil {
				return err
			}

			bundle, err := uc.HandleMessage(ctx, model.UserID(userID), message, time.Now())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		},
	}
}
