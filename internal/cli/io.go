package cli

import (
	"fmt"
	"io"
)

// IO carries the output streams of one CLI invocation.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

func (o *IO) ErrPrintf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.errOut, format, a...)
}

// Fail reports err the way the qview binary reports fatal errors.
func (o *IO) Fail(err error) {
	o.ErrPrintln("qview:", err)
}
