package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Spinner shows a progress indicator on stderr while a provisioning phase
// runs. A nil Spinner is valid and does nothing, which keeps call sites free
// of terminal checks.
type Spinner struct {
	inner *spinner.Spinner
	msg   string
}

// NewSpinner starts a spinner with the given message. It returns nil when
// stderr is not a terminal so progress noise never ends up in pipes or CI
// logs.
func NewSpinner(msg string) *Spinner {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	inner := spinner.New(
		spinner.CharSets[14],
		200*time.Millisecond,
		spinner.WithHiddenCursor(true),
		spinner.WithWriter(os.Stderr),
		spinner.WithSuffix(" "+msg),
	)
	inner.Start()
	return &Spinner{inner: inner, msg: msg}
}

// Success stops the spinner with a green check mark, replacing the message
// when an override is given.
func (s *Spinner) Success(override ...string) {
	s.stop(color.HiGreenString("✓"), override)
}

// Fail stops the spinner with a red cross, replacing the message when an
// override is given.
func (s *Spinner) Fail(override ...string) {
	s.stop(color.HiRedString("✗"), override)
}

func (s *Spinner) stop(mark string, override []string) {
	if s == nil {
		return
	}
	msg := s.msg
	if len(override) > 0 {
		msg = override[0]
	}
	s.inner.FinalMSG = fmt.Sprintf("%s %s\n", mark, msg)
	s.inner.Stop()
}
