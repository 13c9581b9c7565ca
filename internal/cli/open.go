package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gatemaster/internal/domain"
	"gatemaster/internal/shell"
)

func joinVars(vars []string) string { return strings.Join(vars, ",") }

func splitVars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func newOpenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Navigate to a path of the web client, e.g. /practice/quiz/OS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			m := d.shell.Resolve(args[0], d.session.Authenticated())
			if m.Redirected {
				d.render.Notice("%s -> %s", args[0], m.Path)
			}
			if m.Route.Name == shell.ChallengeRun {
				// An attempt only exists for the terminal that started it.
				err := fmt.Errorf("%w: start the challenge with `gatemaster challenges start <id>`", domain.ErrNoQuestions)
				d.render.Error(err)
				return err
			}

			target := findRoute(cmd.Root(), m.Route.Name)
			if target == nil || target.RunE == nil {
				return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, m.Path)
			}
			var targetArgs []string
			for _, name := range splitVars(target.Annotations[routeArgsAnnotation]) {
				targetArgs = append(targetArgs, m.Vars[name])
			}
			if target.Args != nil {
				if err := target.Args(target, targetArgs); err != nil {
					return err
				}
			}
			target.SetContext(cmd.Context())
			return target.RunE(target, targetArgs)
		},
	}
}

// findRoute returns the first command annotated with the route name.
func findRoute(root *cobra.Command, name string) *cobra.Command {
	if root.Annotations[routeAnnotation] == name {
		return root
	}
	for _, c := range root.Commands() {
		if found := findRoute(c, name); found != nil {
			return found
		}
	}
	return nil
}
