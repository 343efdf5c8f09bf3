package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for the x/term calls.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// GetSimpleText prints a prompt to w and reads one trimmed line. A partial
// line before EOF is returned as input.
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a secret without echo when stdin is a terminal and as
// a plain line otherwise. The caller wipes the result.
func GetPassword(reader *bufio.Reader, prompt string, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}

	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		return pw, nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// promptValid re-asks until validate accepts the answer, at most a.maxInput
// times.
func (a *App) promptValid(prompt string, validate func(string) error) (string, error) {
	for i := 0; i < a.maxInput; i++ {
		s, err := GetSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return "", err
		}
		if err := validate(s); err != nil {
			a.printError(userMessage(err))
			continue
		}
		return s, nil
	}
	a.printError("Too many invalid entries.")
	return "", common.ErrTooManyInvalidInputs
}

// promptChoice shows a numbered menu and returns the zero based index.
func (a *App) promptChoice(title string, options []string) (int, error) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	for i, o := range options {
		fmt.Fprintf(&sb, "\n  %d) %s", i+1, o)
	}

	var choice int
	_, err := a.promptValid(sb.String(), func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(options) {
			return fmt.Errorf("choose a number from 1 to %d", len(options))
		}
		choice = n - 1
		return nil
	})
	return choice, err
}

func (a *App) promptYesNo(prompt string) (bool, error) {
	var yes bool
	_, err := a.promptValid(prompt+" (y/n)", func(s string) error {
		switch strings.ToLower(s) {
		case "y", "yes":
			yes = true
		case "n", "no":
			yes = false
		default:
			return errors.New("answer y or n")
		}
		return nil
	})
	return yes, err
}

func (a *App) promptID(prompt string) (int64, error) {
	var id int64
	_, err := a.promptValid(prompt, func(s string) error {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return errors.New("enter a positive number")
		}
		id = n
		return nil
	})
	return id, err
}

// promptPassword reads a secret, re-asking on empty input.
func (a *App) promptPassword(prompt string) ([]byte, error) {
	for i := 0; i < a.maxInput; i++ {
		pw, err := GetPassword(a.reader, prompt, a.out)
		if err != nil {
			return nil, err
		}
		if len(pw) > 0 {
			return pw, nil
		}
		a.printError("Password must not be empty.")
	}
	a.printError("Too many invalid entries.")
	return nil, common.ErrTooManyInvalidInputs
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) printError(s string) {
	fmt.Fprintln(a.out, errorStyle.Render(s))
}

func (a *App) printSuccess(s string) {
	fmt.Fprintln(a.out, successStyle.Render(s))
}

func (a *App) printWarning(s string) {
	fmt.Fprintln(a.out, warningStyle.Render(s))
}
