package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gatemaster/internal/config"
	"gatemaster/internal/domain"
	"gatemaster/internal/shell"
)

// routeAnnotation ties a command to an entry of the shell route table.
// routeArgsAnnotation lists the route variables passed as positional args.
const (
	routeAnnotation     = "route"
	routeArgsAnnotation = "routeArgs"
)

type options struct {
	configPath string
	apiURL     string
	verbose    bool

	deps *deps
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd, opts := newRootCmd()
	return execute(ctx, cmd, opts)
}

// execute runs cmd and releases its dependencies whether or not the command
// failed; cobra skips post-run hooks after an error.
func execute(ctx context.Context, cmd *cobra.Command, opts *options) error {
	defer opts.close()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, *options) {
	envConfig := os.Getenv("GATEMASTER_CONFIG")
	if envConfig == "" {
		envConfig = config.DefaultPath()
	}
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "gatemaster",
		Short:        "GATE Master exam preparation in the terminal",
		SilenceUsage: true,
		Annotations:  route(shell.Landing),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.deps.render.Landing(opts.deps.session.Authenticated())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend API base URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRegisterCmd(opts),
		newVerifyCmd(opts),
		newDashboardCmd(opts),
		newAnalyticsCmd(opts),
		newPracticeCmd(opts),
		newQuizCmd(opts),
		newChallengesCmd(opts),
		newLeaderboardCmd(opts),
		newMaterialsCmd(opts),
		newNewsCmd(opts),
		newInformationCmd(opts),
		newThemeCmd(opts),
		newOpenCmd(opts),
	)
	return cmd, opts
}

func route(name string, vars ...string) map[string]string {
	a := map[string]string{routeAnnotation: name}
	if len(vars) > 0 {
		a[routeArgsAnnotation] = joinVars(vars)
	}
	return a
}

func (o *options) close() {
	if o.deps != nil {
		o.deps.close()
		o.deps = nil
	}
}

// prepare builds the dependencies and applies the route guard of cmd.
func (o *options) prepare(cmd *cobra.Command) error {
	d, err := buildDeps(cmd.Context(), o, streams{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	o.deps = d

	name := cmd.Annotations[routeAnnotation]
	protected := false
	if r, ok := d.shell.Route(name); ok {
		protected = r.Protected
	}
	if err := d.start(cmd.Context(), protected); err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	if err := d.shell.Guard(name, d.session.Authenticated()); err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run `gatemaster login` first", err)
		}
		return err
	}
	return nil
}
