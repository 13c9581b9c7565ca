package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
	"gatemaster/internal/shell"
)

// viewError prints a read-view failure inline and passes it on for the exit code.
func (d *deps) viewError(what string, err error) error {
	err = fmt.Errorf("failed to load %s: %w", what, err)
	d.render.Error(err)
	return err
}

func newDashboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "dashboard",
		Short:       "Welcome page with the available zones",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Dashboard),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			dash, err := d.catalog.Dashboard(cmd.Context())
			if err != nil {
				// Older backends have no dashboard endpoint; greet from the token instead.
				d.log.Debug().Err(err).Msg("dashboard endpoint unavailable")
				id, _ := d.session.Identity()
				dash = domain.Dashboard{Username: displayName("", id)}
			}
			d.render.Dashboard(dash)
			return nil
		},
	}
}

func newAnalyticsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "analytics",
		Short:       "Accuracy by subject and recent activity",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Analytics),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			summary, err := d.catalog.AnalyticsSummary(cmd.Context())
			if err != nil {
				return d.viewError("analytics", err)
			}
			d.render.Analytics(summary)
			return nil
		},
	}
}

func newPracticeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "practice",
		Short:       "List practice subjects",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Practice),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.deps.render.Subjects()
			return nil
		},
	}
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "leaderboard",
		Short:       "Challenge rankings",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Leaderboard),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			lb, err := d.catalog.Leaderboard(cmd.Context())
			if err != nil {
				return d.viewError("leaderboard", err)
			}
			d.render.Leaderboard(lb)
			return nil
		},
	}
}

func newMaterialsCmd(opts *options) *cobra.Command {
	var subject string
	var refresh bool
	cmd := &cobra.Command{
		Use:         "materials",
		Short:       "Study materials, optionally filtered by subject",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Materials),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			code, err := app.MaterialFilter(subject)
			if err != nil {
				d.render.Error(err)
				return err
			}
			if refresh {
				_ = d.catalog.Invalidate(cmd.Context(), app.MaterialsKey(code))
			}
			list, err := d.catalog.Materials(cmd.Context(), code)
			if err != nil {
				return d.viewError("materials", err)
			}
			d.render.Materials(list, code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", domain.AllSubjects, "subject code or ALL")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached list")
	return cmd
}

func newNewsCmd(opts *options) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:         "news",
		Short:       "GATE news and updates",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Information),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			if refresh {
				_ = d.catalog.Invalidate(cmd.Context(), app.NewsKey)
			}
			list, err := d.catalog.News(cmd.Context())
			if err != nil {
				return d.viewError("news", err)
			}
			d.render.News(list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached list")
	return cmd
}

func newInformationCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "information",
		Aliases:     []string{"info"},
		Short:       "Exam pattern, marking scheme and news",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Information),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			d.render.Information()
			fmt.Fprintln(d.out)
			list, err := d.catalog.News(cmd.Context())
			if err != nil {
				// The static part is still useful without the feed.
				d.render.Error(fmt.Errorf("failed to load news: %w", err))
				return nil
			}
			d.render.News(list)
			return nil
		},
	}
}

func newThemeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			current := d.session.Theme()
			if len(args) == 0 {
				d.render.Notice("Theme: %s", current)
				return nil
			}
			next := current.Toggle()
			switch args[0] {
			case "toggle":
			case string(domain.ThemeLight), string(domain.ThemeDark):
				next = domain.ParseTheme(args[0])
			default:
				return fmt.Errorf("unknown theme %q: use light, dark or toggle", args[0])
			}
			if err := d.session.SetTheme(cmd.Context(), next); err != nil {
				return err
			}
			d.render.Notice("Theme: %s", next)
			return nil
		},
	}
}
