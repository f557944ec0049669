package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/internal/cli/output"
	"github.com/leapstack-labs/weslink/internal/config"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

type commandContextKey struct{}

// WithCommandContext stores cc in ctx for the commands to pick up.
func WithCommandContext(ctx context.Context, cc *CommandContext) context.Context {
	return context.WithValue(ctx, commandContextKey{}, cc)
}

// NewCommandContext returns the CommandContext the root command stored.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("configuration not loaded")
	}
	cc, ok := ctx.Value(commandContextKey{}).(*CommandContext)
	if !ok || cc.Cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if cc.Logger == nil {
		cc.Logger = slog.New(slog.DiscardHandler)
	}
	if cc.Renderer == nil {
		cc.Renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cc.Cfg.Format))
	}
	return cc, nil
}
