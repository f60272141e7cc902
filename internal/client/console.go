package client

import (
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Console is where the client shows chat lines and status notices.
type Console interface {
	// Append adds one line to the conversation.
	Append(line string)
	// Notify shows a status message that never blocks input.
	Notify(kind NoticeKind, text string)
}

// PTermConsole renders to a terminal with pterm prefix printers.
type PTermConsole struct {
	mu      sync.Mutex
	out     io.Writer
	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	err     *pterm.PrefixPrinter
}

func NewPTermConsole(w io.Writer) *PTermConsole {
	if w == nil {
		w = os.Stdout
	}
	return &PTermConsole{
		out:     w,
		info:    pterm.Info.WithWriter(w),
		success: pterm.Success.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
		err:     pterm.Error.WithWriter(w),
	}
}

func (c *PTermConsole) Append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pterm.Fprintln(c.out, line)
}

func (c *PTermConsole) Notify(kind NoticeKind, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case NoticeSuccess:
		c.success.Println(text)
	case NoticeWarning:
		c.warning.Println(text)
	case NoticeError:
		c.err.Println(text)
	default:
		c.info.Println(text)
	}
}
