package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog writes to stderr before the structured logger exists. Stdout is
// never used: it carries the correlated output stream.
type EarlyLog struct {
	out io.Writer
}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{out: os.Stderr}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "ERROR: "+msg+"\n", args...)
}
