// Package logging gives every component a tagged logger, matching the
// bracketed component prefixes the original prototype printed
// ("[PrimaryServer] ...", "[Monitor] ...", "[Replicator] ...").
package logging

import (
	"log"
	"os"
)

// Logger wraps the standard logger with a fixed component tag.
type Logger struct {
	tag string
	l   *log.Logger
}

// New returns a Logger that prefixes every line with "[tag] ".
func New(tag string) *Logger {
	return &Logger{
		tag: tag,
		l:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (lg *Logger) Printf(format string, args ...any) {
	lg.l.Printf("[%s] "+format, append([]any{lg.tag}, args...)...)
}

func (lg *Logger) Println(args ...any) {
	lg.l.Println(append([]any{"[" + lg.tag + "]"}, args...)...)
}
