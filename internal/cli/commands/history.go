package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/weslink/internal/cli/output"
	"github.com/leapstack-labs/weslink/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent link runs",
		Long:  `Show link runs recorded in the state database by link --cache.`,
		Example: `  weslink history
  weslink history --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	infos := make([]output.RunInfo, 0, len(runs))
	for _, run := range runs {
		info := output.RunInfo{
			ID:        run.ID,
			Root:      run.Root,
			Status:    string(run.Status),
			Cached:    run.Cached,
			Bytes:     run.Bytes,
			StartedAt: run.StartedAt.Local().Format(time.DateTime),
			Error:     run.Error,
		}
		if run.CompletedAt != nil {
			info.Duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		infos = append(infos, info)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if len(infos) == 0 {
		r.Println("No runs recorded.")
		return nil
	}
	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(infos)))
	titleCaser := cases.Title(language.English)
	rows := make([][]string, 0, len(infos))
	for _, run := range infos {
		rows = append(rows, []string{
			run.StartedAt, run.Root, titleCaser.String(run.Status), strconv.FormatBool(run.Cached),
			strconv.Itoa(run.Bytes), run.Duration, run.Error,
		})
	}
	r.Table([]string{"Started", "Root", "Status", "Cached", "Bytes", "Duration", "Error"}, rows)
	return nil
}
