package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// .env is optional; explicit environment variables take precedence
	if err := godotenv.Load(); err == nil {
		logging.Default().Debug("loaded .env file")
	}

	cmd := &cli.Command{
		Name:  "docaudit",
		Usage: "Document quality assessment and duplicate detection",
		Commands: []*cli.Command{
			processCommand(),
			scanCommand(),
			getCommand(),
			historyCommand(),
			listCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.From(ctx).Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
