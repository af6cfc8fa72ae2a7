package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "solace",
		Usage: "Context assembly core for a mental health support assistant",
		Commands: []*cli.Command{
			ingestCommand(),
			askCommand(),
			chatCommand(),
			checkinCommand(),
			profileCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
