package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
	"gatemaster/internal/render"
)

const runnerHelp = `Commands:
  n, next            next question          p, prev        previous question
  g, goto <N>        jump to question N     l, palette     show the palette
  a, answer <value>  MCQ key, MSQ keys (AC or A C), NAT number
  t, toggle <key>    toggle one MSQ option  c, clear       clear response
  m, mark            mark for review        mn             mark for review & next
  s, save            save & next            r, reveal      reveal answer (practice)
  submit             submit the attempt     q, quit        abandon the attempt`

// errAbandoned is returned when the user leaves before submitting.
var errAbandoned = errors.New("attempt abandoned")

// runner drives an attempt from line input until it is submitted,
// auto-submitted or abandoned.
type runner struct {
	attempt *app.Attempt
	render  *render.Renderer
	in      *bufio.Reader
	out     io.Writer
	title   string
	log     zerolog.Logger

	warned bool
}

func (r *runner) Run(ctx context.Context) (domain.ScoredResult, error) {
	defer r.attempt.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := r.in.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- strings.TrimSpace(line):
				case <-r.attempt.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	updates, cancel := r.attempt.Subscribe()
	defer cancel()

	r.show()
	for {
		// A finished attempt wins over any buffered input.
		select {
		case <-r.attempt.Done():
			return r.finish()
		default:
		}

		select {
		case <-ctx.Done():
			return domain.ScoredResult{}, ctx.Err()
		case <-r.attempt.Done():
			return r.finish()
		case snap, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			r.timerWarning(snap)
		case line, ok := <-lines:
			if !ok {
				return domain.ScoredResult{}, errAbandoned
			}
			if quit := r.exec(ctx, line); quit {
				return domain.ScoredResult{}, errAbandoned
			}
		}
	}
}

func (r *runner) finish() (domain.ScoredResult, error) {
	res, ok := r.attempt.Result()
	if !ok {
		if err := r.attempt.Err(); err != nil {
			return domain.ScoredResult{}, err
		}
		return domain.ScoredResult{}, domain.ErrAttemptClosed
	}
	fmt.Fprintln(r.out)
	r.render.Submitted(r.attempt.Config().Kind, r.attempt.Expired())
	r.render.Result(res)
	return res, nil
}

func (r *runner) timerWarning(snap app.AttemptSnapshot) {
	if r.warned || snap.State != app.StateActive {
		return
	}
	if snap.Remaining() < render.WarnBelow(snap.Kind) {
		r.warned = true
		fmt.Fprintf(r.out, "\n%s\n> ", r.render.Timer(snap.Remaining(), snap.Kind))
	}
}

// show prints the header, the active question and the palette.
func (r *runner) show() {
	snap := r.attempt.Snapshot()
	q, ok := r.attempt.Current()
	if !ok {
		return
	}
	fmt.Fprintln(r.out)
	r.render.AttemptHeader(r.title, snap)
	ans, _ := r.attempt.Answer(q.ID)
	var revealed *domain.RevealedAnswer
	if rv, ok := r.attempt.Revealed(q.ID); ok {
		revealed = &rv
	}
	r.render.Question(q, snap.Position, snap.Total, ans, r.attempt.Status(q.ID), revealed)
	r.render.Palette(snap)
	fmt.Fprint(r.out, "> ")
}

// exec runs one command line and reports whether the user quit.
func (r *runner) exec(ctx context.Context, line string) bool {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	q, _ := r.attempt.Current()

	var err error
	switch strings.ToLower(verb) {
	case "":
	case "n", "next":
		err = r.attempt.Next()
	case "p", "prev":
		err = r.attempt.Prev()
	case "g", "goto":
		var n int
		n, err = strconv.Atoi(arg)
		if err == nil {
			err = r.attempt.GoTo(n - 1)
		}
	case "a", "answer":
		err = r.attempt.SetAnswer(q.ID, parseAnswer(q, arg))
	case "t", "toggle":
		err = r.attempt.ToggleChoice(q.ID, strings.ToUpper(arg))
	case "c", "clear":
		err = r.attempt.ClearResponse(q.ID)
	case "m", "mark":
		err = r.attempt.MarkForReview(q.ID)
	case "mn":
		err = r.attempt.MarkForReviewAndNext()
	case "s", "save":
		err = r.attempt.SaveAndNext()
	case "r", "reveal":
		_, err = r.attempt.RevealAnswer(ctx, q.ID)
	case "submit":
		r.render.Notice("Submitting...")
		if _, err = r.attempt.Submit(ctx); err == nil {
			return false
		}
	case "l", "palette":
		r.render.Palette(r.attempt.Snapshot())
		fmt.Fprint(r.out, "> ")
		return false
	case "h", "help", "?":
		fmt.Fprintln(r.out, runnerHelp)
		fmt.Fprint(r.out, "> ")
		return false
	case "q", "quit":
		return true
	default:
		err = fmt.Errorf("unknown command %q, type h for help", verb)
	}

	if err != nil {
		r.log.Debug().Err(err).Str("command", verb).Msg("runner command failed")
		r.render.Error(err)
		fmt.Fprint(r.out, "> ")
		return false
	}
	r.show()
	return false
}

// parseAnswer turns typed input into the answer shape of q. Empty input
// yields an empty answer, which clears the response.
func parseAnswer(q domain.Question, raw string) domain.Answer {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Answer{}
	}
	switch q.Type {
	case domain.Numeric:
		return domain.NumericValue(raw)
	case domain.MultiSelect:
		fields := strings.FieldsFunc(strings.ToUpper(raw), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) == 1 && !q.Options.Has(fields[0]) {
			// "AC" means A and C when options are single letters.
			fields = strings.Split(fields[0], "")
		}
		return domain.ChooseMany(fields...)
	default:
		return domain.Choose(strings.ToUpper(raw))
	}
}
