package domain

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// decimalPattern is the only numeric form the scoring service compares:
// optional sign, digits and at most one decimal point.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Answer is a tagged union keyed by question type. The zero value is empty.
type Answer struct {
	kind    QuestionType
	choice  string
	choices []string
	numeric string
}

// Choose builds a single-select answer.
func Choose(key string) Answer {
	return Answer{kind: SingleSelect, choice: key}
}

// ChooseMany builds a multi-select answer. Duplicate keys collapse.
func ChooseMany(keys ...string) Answer {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return Answer{kind: MultiSelect, choices: out}
}

// NumericValue builds a numeric-answer value from user input.
func NumericValue(raw string) Answer {
	return Answer{kind: Numeric, numeric: strings.TrimSpace(raw)}
}

// Kind is the question type this answer belongs to.
func (a Answer) Kind() QuestionType { return a.kind }

// Choice is the selected key of a single-select answer.
func (a Answer) Choice() string { return a.choice }

// Choices is a copy of the selected keys of a multi-select answer, in selection order.
func (a Answer) Choices() []string {
	out := make([]string, len(a.choices))
	copy(out, a.choices)
	return out
}

// Numeric is the raw numeric string.
func (a Answer) Numeric() string { return a.numeric }

// Empty reports whether the answer carries no value.
func (a Answer) Empty() bool {
	switch a.kind {
	case SingleSelect:
		return a.choice == ""
	case MultiSelect:
		return len(a.choices) == 0
	case Numeric:
		return a.numeric == ""
	default:
		return true
	}
}

// Has reports whether key is selected.
func (a Answer) Has(key string) bool {
	switch a.kind {
	case SingleSelect:
		return a.choice == key
	case MultiSelect:
		for _, c := range a.choices {
			if c == key {
				return true
			}
		}
	}
	return false
}

// Toggle adds key to a multi-select answer, or removes it if already selected.
func (a Answer) Toggle(key string) Answer {
	if a.Has(key) {
		out := make([]string, 0, len(a.choices))
		for _, c := range a.choices {
			if c != key {
				out = append(out, c)
			}
		}
		return Answer{kind: MultiSelect, choices: out}
	}
	return ChooseMany(append(a.Choices(), key)...)
}

// Canonical is the wire form of the answer.
func (a Answer) Canonical() string {
	switch a.kind {
	case SingleSelect:
		return a.choice
	case MultiSelect:
		return Canonicalize(a.choices)
	case Numeric:
		return a.numeric
	}
	return ""
}

// String renders the answer for display.
func (a Answer) String() string {
	if a.kind == MultiSelect {
		keys := a.Choices()
		sort.Strings(keys)
		return strings.Join(keys, ", ")
	}
	return a.Canonical()
}

// Canonicalize sorts multi-select keys and concatenates them without a
// delimiter, which is the form the scoring service compares against.
// The result is only unambiguous for single-character keys; see AmbiguousKeys.
func Canonicalize(keys []string) string {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "")
}

// AmbiguousKeys reports whether any key is not a single uppercase ASCII
// letter, in which case the concatenated canonical form can collide.
func AmbiguousKeys(keys []string) bool {
	for _, k := range keys {
		if len(k) != 1 || k[0] < 'A' || k[0] > 'Z' {
			return true
		}
	}
	return false
}

// Validate checks that a fits question q.
func (q Question) Validate(a Answer) error {
	if a.kind != q.Type {
		return ErrAnswerKind
	}
	switch a.kind {
	case SingleSelect:
		if !q.Options.Has(a.choice) {
			return ErrUnknownOption
		}
	case MultiSelect:
		for _, c := range a.choices {
			if !q.Options.Has(c) {
				return ErrUnknownOption
			}
		}
	case Numeric:
		if !decimalPattern.MatchString(a.numeric) {
			return ErrAnswerKind
		}
		v, err := strconv.ParseFloat(a.numeric, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return ErrAnswerKind
		}
	}
	return nil
}
