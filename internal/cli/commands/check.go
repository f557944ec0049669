package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/internal/cli/output"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/link"
	"github.com/leapstack-labs/weslink/pkg/scope"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse and bind every module",
		Long: `Parse every module of the package and its bundles, resolve all imports
and identifiers, then link the root module without writing anything.

Every problem found is reported; the command fails if there is any.`,
		Example: `  # Check the project
  weslink check

  # Machine-readable diagnostics
  weslink check --format json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := loadProject(ctx, cc)
	if err != nil {
		return err
	}

	paths := p.reg.Paths()
	res := output.CheckOutput{Modules: len(paths), Diagnostics: []output.Diagnostic{}}
	var errs []error
	report := func(err error) {
		errs = append(errs, err)
		d := output.Diagnostic{Message: err.Error()}
		if e, ok := core.AsError(err); ok {
			d.Kind, d.Module, d.Message = e.Kind.String(), e.Module, e.Message
			d.Line, d.Column = p.position(e)
		}
		res.Diagnostics = append(res.Diagnostics, d)
	}

	l, err := p.lookup(cc)
	if err != nil {
		return err
	}
	an := scope.NewAnalyzer(l, cc.Logger)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.reg.GetModule(path); err != nil {
			report(err)
			continue
		}
		if _, err := an.Analyze(path); err != nil {
			report(err)
		}
	}
	if len(errs) == 0 && p.reg.HasModule(resolveRoot(p, cc.Cfg.Root)) {
		opts := linkOptions(cc)
		opts.Analyzer = an
		if _, err := link.Link(ctx, l, opts); err != nil {
			report(err)
		}
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(res); err != nil {
			return err
		}
	default:
		for _, err := range errs {
			r.Error(p.withContext(err).Error())
		}
		if len(errs) == 0 {
			r.Printf("%s %d modules\n", r.Styles().Success.Render("ok"), res.Modules)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d problems", errCheckFailed, len(errs))
	}
	return nil
}
