package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

var errNoInput = errors.New("no input")

// readLine prompts and reads one line; EOF with no text is errNoInput.
func (d *deps) readLine(label string) (string, error) {
	if label != "" {
		fmt.Fprint(d.out, label)
	}
	line, err := d.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	return line, nil
}

// readSecret reads a password without echo when stdin is a terminal.
func (d *deps) readSecret(label string) (string, error) {
	if d.tty == nil {
		return d.readLine(label)
	}
	fmt.Fprint(d.out, label)
	raw, err := term.ReadPassword(int(d.tty.Fd()))
	fmt.Fprintln(d.out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (d *deps) confirm(question string) bool {
	answer, err := d.readLine(question + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
