package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID for the session",
			Sources:     cli.EnvVars("SOLACE_USER"),
			Destination: &userID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive session printing the bundle for every message",
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

			rl, err := readline.New("you> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			out := c.Root().Writer
			fmt.Fprintln(out, "Session started. Ctrl-D to leave.")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						return nil
					}
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "" {
					continue
				}

				bundle, err := uc.HandleMessage(ctx, model.UserID(userID), message, time.Now())
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}

				printBundle(out, bundle)
			}
		},
	}
}

func printBundle(out io.Writer, bundle *model.ContextBundle) {
	fmt.Fprintf(out, "state: %s", bundle.State)
	if bundle.Emotion != nil {
		fmt.Fprintf(out, "  emotion: %s/%s", bundle.Emotion.Primary, bundle.Emotion.Intensity)
	}
	fmt.Fprintln(out)

	if bundle.Decision != nil && bundle.Decision.ShouldAct {
		fmt.Fprintf(out, "proactive [%s]: %s\n", bundle.Decision.RuleID, bundle.Decision.Question)
	}

	for i, cand := range bundle.Citations {
		if i >= 3 {
			fmt.Fprintf(out, "  ... and %d more citations\n", len(bundle.Citations)-i)
			break
		}
		text := cand.Chunk.Text
		if runes := []rune(text); len(runes) > 120 {
			text = string(runes[:120]) + "..."
		}
		fmt.Fprintf(out, "  [%d] %s (%s)\n", i+1, text, cand.Chunk.SourceTitle)
	}

	if bundle.Degraded() {
		fmt.Fprintf(out, "degraded: %v\n", bundle.Quality)
	}
}
