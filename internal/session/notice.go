package session

import (
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
)

// NoticeKind identifies a session event.
type NoticeKind int

// List of valid NoticeKind values.
const (
	NoticeStateChanged NoticeKind = iota
	NoticeROMLoaded
	NoticeROMError
	NoticeSaveCreated
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeStateChanged:
		return "state changed"
	case NoticeROMLoaded:
		return "rom loaded"
	case NoticeROMError:
		return "rom error"
	case NoticeSaveCreated:
		return "save created"
	}
	return "unknown"
}

// Notice is sent to the Notifier after the event has been applied to the
// session.
type Notice struct {
	Kind   NoticeKind
	Detail string
}

// Status is a snapshot of the session for display.
type Status struct {
	State     State
	Cartridge *cart.Summary // nil when no cartridge is loaded
	Header    *cart.Header  // nil when no cartridge is loaded
	LastError string
}

// Notifier receives session events. Notify is called on the goroutine that
// issued the operation and never with the session lock held, so it is safe
// to query the Manager from inside Notify.
type Notifier interface {
	Notify(n Notice, s Status)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notice, s Status)

func (f NotifierFunc) Notify(n Notice, s Status) { f(n, s) }
