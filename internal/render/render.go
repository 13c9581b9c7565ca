package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"gatemaster/internal/domain"
)

// Renderer writes views to a terminal using the palette of a theme.
type Renderer struct {
	out   io.Writer
	theme domain.Theme
	st    styles
}

type styles struct {
	title  *color.Color
	muted  *color.Color
	good   *color.Color
	bad    *color.Color
	warn   *color.Color
	info   *color.Color
	accent *color.Color
}

// New returns a renderer writing to out. colour forces escapes on or off
// regardless of what fatih/color detected for stdout.
func New(out io.Writer, theme domain.Theme, colour bool) *Renderer {
	st := themeStyles(theme)
	for _, c := range st.all() {
		if colour {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Renderer{out: out, theme: theme, st: st}
}

// ColorEnabled reports whether f is a terminal that should get colour.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func themeStyles(theme domain.Theme) styles {
	if theme == domain.ThemeDark {
		return styles{
			title:  color.New(color.FgHiCyan, color.Bold),
			muted:  color.New(color.FgHiBlack),
			good:   color.New(color.FgHiGreen),
			bad:    color.New(color.FgHiRed),
			warn:   color.New(color.FgHiYellow),
			info:   color.New(color.FgHiBlue),
			accent: color.New(color.FgHiMagenta, color.Bold),
		}
	}
	return styles{
		title:  color.New(color.FgBlue, color.Bold),
		muted:  color.New(color.Faint),
		good:   color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		warn:   color.New(color.FgYellow),
		info:   color.New(color.FgCyan),
		accent: color.New(color.FgMagenta, color.Bold),
	}
}

func (s styles) all() []*color.Color {
	return []*color.Color{s.title, s.muted, s.good, s.bad, s.warn, s.info, s.accent}
}

// Theme is the palette the renderer was built with.
func (r *Renderer) Theme() domain.Theme { return r.theme }

// Writer exposes the underlying output.
func (r *Renderer) Writer() io.Writer { return r.out }

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) heading(text string) {
	r.printf("%s\n", r.st.title.Sprint(text))
	r.printf("%s\n", r.st.muted.Sprint(strings.Repeat("-", len([]rune(text)))))
}

// Notice prints a one line informational message.
func (r *Renderer) Notice(format string, args ...any) {
	r.printf("%s\n", r.st.info.Sprintf(format, args...))
}

// Success prints a one line confirmation.
func (r *Renderer) Success(format string, args ...any) {
	r.printf("%s\n", r.st.good.Sprintf(format, args...))
}

// Error prints an inline error line; the view stays usable.
func (r *Renderer) Error(err error) {
	r.printf("%s %s\n", r.st.bad.Sprint("error:"), err)
}

// number drops trailing zeros so 30 prints as 30 and 12.67 as 12.67.
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// bar draws a proportional text bar of width cells.
func bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
