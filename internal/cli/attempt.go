package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gatemaster/internal/app"
	"gatemaster/internal/config"
	"gatemaster/internal/domain"
	"gatemaster/internal/infra/api"
	"gatemaster/internal/shell"
	transport "gatemaster/internal/transport/http"
)

// watchListener binds the watch address, if configured, before any attempt
// exists so a busy port fails the command instead of a running attempt.
func (d *deps) watchListener() (net.Listener, error) {
	if d.cfg.Watch.Addr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", d.cfg.Watch.Addr)
	if err != nil {
		err = fmt.Errorf("watch server: %w", err)
		d.render.Error(err)
		return nil, err
	}
	return ln, nil
}

// runAttempt drives attempt in the foreground while the session keeps
// refreshing and, when ln is set, the watch server streams snapshots.
func (d *deps) runAttempt(ctx context.Context, attempt *app.Attempt, title string, ln net.Listener) (domain.ScoredResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return d.session.Run(runCtx)
	})

	if ln != nil {
		watch := transport.NewWatchHandler(d.log)
		watch.Attach(attempt)
		g.Go(func() error {
			// The watch server is optional; losing it never ends the attempt.
			if err := transport.ServeListener(runCtx, ln, transport.NewRouter(watch), d.log); err != nil {
				d.log.Warn().Err(err).Msg("watch server stopped")
			}
			return nil
		})
		d.render.Notice("Watching at http://%s/attempt", ln.Addr())
	}

	var res domain.ScoredResult
	g.Go(func() error {
		defer stop()
		r := &runner{attempt: attempt, render: d.render, in: d.in, out: d.out, title: title, log: d.log}
		var err error
		res, err = r.Run(runCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.ScoredResult{}, err
	}
	return res, nil
}

func newQuizCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "quiz <subject>",
		Short:       "Take a timed practice quiz for a subject code",
		Args:        cobra.ExactArgs(1),
		Annotations: route(shell.PracticeQuiz, "subject"),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			subject, err := domain.LookupSubject(args[0])
			if err != nil {
				err = fmt.Errorf("%w %q: see `gatemaster practice`", err, args[0])
				d.render.Error(err)
				return err
			}

			ln, err := d.watchListener()
			if err != nil {
				return err
			}
			if ln != nil {
				defer ln.Close()
			}

			attempt := app.NewAttempt(app.AttemptConfig{
				Kind:        domain.KindPractice,
				ID:          subject.Code,
				Subject:     subject.Code,
				Duration:    config.Duration(d.cfg.Practice.Duration, 30*time.Minute),
				AllowReveal: *d.cfg.Practice.AllowReveal,
			}, api.NewPracticeBackend(d.gateway), d.log)

			questions, err := d.gateway.PracticeQuestions(cmd.Context(), subject.Code)
			if err != nil {
				attempt.Fail(err)
				return d.viewError(subject.Name+" questions", err)
			}
			if err := attempt.Begin(questions); err != nil {
				d.render.Error(fmt.Errorf("no questions available for %s", subject.Name))
				return err
			}

			_, err = d.runAttempt(cmd.Context(), attempt, subject.Name+" Quiz", ln)
			return err
		},
	}
}

func newChallengesCmd(opts *options) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:         "challenges",
		Short:       "List mock test challenges",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Challenges),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			if refresh {
				_ = d.catalog.Invalidate(cmd.Context(), app.ChallengesKey)
			}
			list, err := d.catalog.Challenges(cmd.Context())
			if err != nil {
				return d.viewError("challenges", err)
			}
			d.render.Challenges(list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached list")
	cmd.AddCommand(newChallengeStartCmd(opts), newChallengeResultCmd(opts))
	return cmd
}

func newChallengeStartCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:         "start <challenge-id>",
		Short:       "Start a timed challenge attempt",
		Args:        cobra.ExactArgs(1),
		Annotations: route(shell.ChallengeRun),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			challengeID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("challenge id must be a number: %q", args[0])
			}
			duration := config.Duration(d.cfg.Challenge.Duration, 3*time.Hour)
			ln, err := d.watchListener()
			if err != nil {
				return err
			}
			if ln != nil {
				defer ln.Close()
			}
			if !yes && !d.confirm(fmt.Sprintf("This is a %s timed test and it will be submitted when time runs out. Start now?", humanDuration(duration))) {
				d.render.Notice("Not started.")
				return nil
			}

			started, err := d.gateway.StartChallenge(cmd.Context(), challengeID)
			if err != nil {
				return d.viewError("challenge", err)
			}
			attemptID := strconv.Itoa(started.ID)
			d.log.Info().Str("attempt_id", attemptID).Dur("duration", duration).Msg("challenge attempt started")

			attempt := app.NewAttempt(app.AttemptConfig{
				Kind:        domain.KindChallenge,
				ID:          attemptID,
				Duration:    duration,
				AllowReveal: *d.cfg.Challenge.AllowReveal,
			}, api.NewChallengeBackend(d.gateway), d.log)
			if err := attempt.Begin(started.Questions); err != nil {
				d.render.Error(errors.New("this challenge has no questions"))
				return err
			}

			if _, err := d.runAttempt(cmd.Context(), attempt, fmt.Sprintf("Challenge attempt #%s", attemptID), ln); err != nil {
				return err
			}
			if path, err := d.shell.URL(shell.ChallengeResult, "attemptId", attemptID); err == nil {
				d.render.Notice("Result kept at %s (gatemaster open %s)", path, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "start without confirmation")
	return cmd
}

func newChallengeResultCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "result <attempt-id>",
		Short:       "Show the scored result of a challenge attempt",
		Args:        cobra.ExactArgs(1),
		Annotations: route(shell.ChallengeResult, "attemptId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			res, err := d.gateway.ChallengeResult(cmd.Context(), args[0])
			if err != nil {
				return d.viewError("challenge result", err)
			}
			d.render.Result(res)
			return nil
		},
	}
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return strings.TrimSuffix(d.Round(time.Minute).String(), "0s")
}
