// Package logger is the central log for the application. Entries are tagged
// with the name of the package or component making the entry and are kept in
// a bounded list so that front ends can display the most recent entries.
//
// Consecutive identical entries are folded into a single entry with a repeat
// count.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Entry is a single line in the log.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	repeated  int
}

func (e Entry) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s: %s", e.Tag, e.Detail))
	if e.repeated > 0 {
		s.WriteString(fmt.Sprintf(" (repeat x%d)", e.repeated+1))
	}
	s.WriteString("\n")
	return s.String()
}

// maximum number of entries kept by the central logger
const maxCentral = 256

var central = newLogger(maxCentral)

type logger struct {
	crit sync.Mutex

	maxEntries int
	entries    []Entry

	echo io.Writer
}

func newLogger(maxEntries int) *logger {
	return &logger{
		maxEntries: maxEntries,
		entries:    make([]Entry, 0, maxEntries),
	}
}

func (l *logger) log(tag, detail string) {
	l.crit.Lock()
	defer l.crit.Unlock()

	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", " ")

	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		l.entries[n-1].repeated++
		l.entries[n-1].Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		if len(l.entries) > l.maxEntries {
			l.entries = l.entries[len(l.entries)-l.maxEntries:]
		}
	}

	// repeats are not echoed
	if l.echo != nil && l.entries[len(l.entries)-1].repeated == 0 {
		io.WriteString(l.echo, l.entries[len(l.entries)-1].String())
	}
}

func (l *logger) clear() {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.entries = l.entries[:0]
}

func (l *logger) tail(output io.Writer, number int) {
	l.crit.Lock()
	defer l.crit.Unlock()

	if output == nil {
		return
	}

	n := len(l.entries) - number
	if n < 0 || number < 0 {
		n = 0
	}
	for _, e := range l.entries[n:] {
		io.WriteString(output, e.String())
	}
}

func (l *logger) recent(number int) []Entry {
	l.crit.Lock()
	defer l.crit.Unlock()

	n := len(l.entries) - number
	if n < 0 {
		n = 0
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

func (l *logger) setEcho(output io.Writer) {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.echo = output
}

// Log adds an entry to the central logger.
func Log(tag, detail string) {
	central.log(tag, detail)
}

// Logf adds a formatted entry to the central logger.
func Logf(tag, detail string, args ...interface{}) {
	central.log(tag, fmt.Sprintf(detail, args...))
}

// Clear all entries from the central logger.
func Clear() {
	central.clear()
}

// Tail writes the last N entries to io.Writer.
func Tail(output io.Writer, number int) {
	central.tail(output, number)
}

// Recent returns a copy of the last N entries.
func Recent(number int) []Entry {
	return central.recent(number)
}

// SetEcho mirrors new entries to io.Writer as they are logged. A nil writer
// turns echoing off.
func SetEcho(output io.Writer) {
	central.setEcho(output)
}
