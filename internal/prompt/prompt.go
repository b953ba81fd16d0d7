// Package prompt provides the interactive resolution oracle: each
// ambiguous candidate is presented on the terminal as a numbered menu of
// "create new" plus the available rename sources.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/schemadrift/schemadrift/internal/diff"
)

// Terminal asks the operator to classify each candidate. It satisfies
// diff.Oracle.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a terminal oracle bound to stdin/stdout.
func New() *Terminal {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO returns a terminal oracle over arbitrary streams.
func NewWithIO(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Choose prints the candidate and its rename options and reads a
// selection. Invalid input re-prompts; "a" or end of input aborts the
// whole resolution.
func (t *Terminal) Choose(category string, candidate diff.Ref, options []diff.Ref) (diff.Choice, error) {
	fmt.Fprintf(t.out, "\nIs %s %q created, or renamed from an existing %s?\n", category, candidate.String(), category)
	fmt.Fprintln(t.out, "  0. create new")
	for i, opt := range options {
		fmt.Fprintf(t.out, "  %d. rename from %q\n", i+1, opt.String())
	}

	for {
		fmt.Fprintf(t.out, "Select an option (0-%d, or 'a' to abort): ", len(options))

		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			// Input stream closed under us; treat it as an abort rather
			// than guessing an answer.
			if err == io.EOF {
				fmt.Fprintln(t.out)
				return diff.Choice{Kind: diff.ChoiceAbort}, nil
			}
			return diff.Choice{}, fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if strings.EqualFold(input, "a") || strings.EqualFold(input, "abort") {
			return diff.Choice{Kind: diff.ChoiceAbort}, nil
		}

		selection, convErr := strconv.Atoi(input)
		if convErr != nil || selection < 0 || selection > len(options) {
			fmt.Fprintf(t.out, "invalid selection: %s\n", input)
			continue
		}

		if selection == 0 {
			return diff.Choice{Kind: diff.ChoiceCreate}, nil
		}
		return diff.Choice{Kind: diff.ChoiceRename, Index: selection - 1}, nil
	}
}
