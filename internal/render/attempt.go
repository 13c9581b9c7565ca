package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
)

const paletteColumns = 10

// Clock formats a remaining duration as mm:ss; minutes are not wrapped into hours.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// WarnBelow is the remaining time under which the timer turns to a warning.
func WarnBelow(kind domain.AttemptKind) time.Duration {
	if kind == domain.KindChallenge {
		return 5 * time.Minute
	}
	return time.Minute
}

// Timer renders the countdown, coloured once it drops under WarnBelow.
func (r *Renderer) Timer(remaining time.Duration, kind domain.AttemptKind) string {
	text := "Time left: " + Clock(remaining)
	if remaining < WarnBelow(kind) {
		return r.st.bad.Sprint(text)
	}
	return r.st.info.Sprint(text)
}

func (r *Renderer) statusColor(s domain.Status) *color.Color {
	switch s {
	case domain.StatusAnswered:
		return r.st.good
	case domain.StatusNotAnswered:
		return r.st.bad
	case domain.StatusMarkedForReview:
		return r.st.warn
	case domain.StatusAnsweredAndMarked:
		return r.st.info
	default:
		return nil
	}
}

// glyph keeps statuses distinguishable when colour is off.
func glyph(s domain.Status) string {
	switch s {
	case domain.StatusAnswered:
		return "*"
	case domain.StatusNotAnswered:
		return "-"
	case domain.StatusMarkedForReview:
		return "?"
	case domain.StatusAnsweredAndMarked:
		return "!"
	default:
		return " "
	}
}

var legend = []struct {
	status domain.Status
	label  string
}{
	{domain.StatusAnswered, "answered"},
	{domain.StatusNotAnswered, "not answered"},
	{domain.StatusMarkedForReview, "marked"},
	{domain.StatusAnsweredAndMarked, "answered & marked"},
	{domain.StatusNotVisited, "not visited"},
}

// Palette renders the question grid of a snapshot with the current
// question in brackets, followed by a legend with counts.
func (r *Renderer) Palette(snap app.AttemptSnapshot) {
	counts := make(map[domain.Status]int)
	for i, q := range snap.Questions {
		status := q.Status
		if status == "" {
			status = domain.StatusNotVisited
		}
		counts[status]++

		cell := fmt.Sprintf("%2d%s", i+1, glyph(status))
		if c := r.statusColor(status); c != nil {
			cell = c.Sprint(cell)
		}
		if i == snap.Position {
			cell = "[" + cell + "]"
		} else {
			cell = " " + cell + " "
		}
		r.printf("%s", cell)
		if (i+1)%paletteColumns == 0 || i == len(snap.Questions)-1 {
			r.printf("\n")
		}
	}

	parts := make([]string, 0, len(legend))
	for _, l := range legend {
		text := strings.TrimSpace(fmt.Sprintf("%s %s (%d)", glyph(l.status), l.label, counts[l.status]))
		if c := r.statusColor(l.status); c != nil {
			text = c.Sprint(text)
		}
		parts = append(parts, text)
	}
	r.printf("%s\n", strings.Join(parts, "  "))
}

// Question renders the active question, its options and the current answer.
func (r *Renderer) Question(q domain.Question, pos, total int, ans domain.Answer, status domain.Status, revealed *domain.RevealedAnswer) {
	header := fmt.Sprintf("Question %d of %d", pos+1, total)
	meta := fmt.Sprintf("[%s, %d mark", q.Type, q.Marks)
	if q.Marks != 1 {
		meta += "s"
	}
	meta += "]"
	r.printf("%s %s", r.st.title.Sprint(header), r.st.muted.Sprint(meta))
	if status.Marked() {
		r.printf(" %s", r.st.warn.Sprint("marked for review"))
	}
	r.printf("\n%s\n", q.Text)
	if q.Image != "" {
		r.printf("%s %s\n", r.st.muted.Sprint("Image:"), q.Image)
	}

	switch q.Type {
	case domain.Numeric:
		value := ans.Numeric()
		if value == "" {
			value = r.st.muted.Sprint("(no answer)")
		}
		r.printf("  Answer: %s\n", value)
	default:
		open, shut := "(", ")"
		if q.Type == domain.MultiSelect {
			open, shut = "[", "]"
		}
		for _, opt := range q.Options {
			mark := " "
			if ans.Has(opt.Key) {
				mark = "x"
			}
			line := fmt.Sprintf("  %s%s%s %s. %s", open, mark, shut, opt.Key, opt.Text)
			if mark == "x" {
				line = r.st.accent.Sprint(line)
			}
			r.printf("%s\n", line)
		}
	}

	if revealed != nil {
		r.printf("%s %s\n", r.st.warn.Sprint("Correct answer:"), revealed.CorrectAnswer)
		if revealed.Explanation != "" {
			r.printf("%s %s\n", r.st.muted.Sprint("Explanation:"), revealed.Explanation)
		}
		r.printf("%s\n", r.st.muted.Sprint("This question will not be scored."))
	}
}

// AttemptHeader prints the title line and timer of an attempt view.
func (r *Renderer) AttemptHeader(title string, snap app.AttemptSnapshot) {
	r.printf("%s  %s\n", r.st.title.Sprint(title), r.Timer(snap.Remaining(), snap.Kind))
}
