// Package input translates key events from a front end into joypad state.
//
// Key names are matched without regard to case. The default names are the
// ones ebiten reports for its keys (Key.String()), which are also the DOM
// key names for the arrow keys and Enter.
package input

import (
	"fmt"
	"strings"
	"sync"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

// Gate decides whether joypad state may reach the runtime. The session
// manager implements it and only forwards while running.
type Gate interface {
	SetInput(j adapter.Joypad) bool
}

// Keymap maps lower-case key names to buttons.
type Keymap map[string]adapter.Button

// DefaultKeymap returns the standard bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		"arrowup":    adapter.Up,
		"arrowdown":  adapter.Down,
		"arrowleft":  adapter.Left,
		"arrowright": adapter.Right,
		"z":          adapter.A,
		"x":          adapter.B,
		"enter":      adapter.Start,
		"shiftright": adapter.Select,
	}
}

// NewKeymap builds a keymap from key name to button name bindings, as
// stored in the settings file. A button may have more than one key but every
// button must have at least one.
func NewKeymap(bindings map[string]string) (Keymap, error) {
	k := make(Keymap, len(bindings))
	var bound [adapter.NumButtons]bool
	for key, name := range bindings {
		b, ok := adapter.ParseButton(name)
		if !ok {
			return nil, fmt.Errorf("input: unknown button %q", name)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("input: empty key for %s", b)
		}
		if other, ok := k[key]; ok && other != b {
			return nil, fmt.Errorf("input: key %q bound to both %s and %s", key, other, b)
		}
		k[key] = b
		bound[b] = true
	}
	for b, ok := range bound {
		if !ok {
			return nil, fmt.Errorf("input: no key for %s", adapter.Button(b))
		}
	}
	return k, nil
}

// Lookup returns the button bound to key.
func (k Keymap) Lookup(key string) (adapter.Button, bool) {
	b, ok := k[strings.ToLower(key)]
	return b, ok
}

// Bindings is the inverse of NewKeymap.
func (k Keymap) Bindings() map[string]string {
	m := make(map[string]string, len(k))
	for key, b := range k {
		m[key] = strings.ToLower(b.String())
	}
	return m
}

// Router keeps the held state of the joypad and forwards it through the gate
// on every key event.
type Router struct {
	gate Gate

	crit sync.Mutex
	keys Keymap
	held adapter.Joypad
}

// NewRouter returns a router using keys, or the default keymap if keys is
// nil.
func NewRouter(gate Gate, keys Keymap) *Router {
	if keys == nil {
		keys = DefaultKeymap()
	}
	return &Router{gate: gate, keys: keys}
}

// Route applies a key event. The complete joypad state is returned when the
// key is bound and the state was forwarded to the runtime. Repeated key down
// events are forwarded like any other.
//
// The held state is updated even when the gate refuses it, so a key released
// while the session was paused is not stuck down when it resumes.
func (r *Router) Route(key string, pressed bool) (adapter.Joypad, bool) {
	r.crit.Lock()
	defer r.crit.Unlock()

	b, ok := r.keys.Lookup(key)
	if !ok {
		return adapter.Joypad{}, false
	}
	r.held = r.held.With(b, pressed)

	if !r.gate.SetInput(r.held) {
		return adapter.Joypad{}, false
	}
	return r.held, true
}

// Release lets go of every button.
func (r *Router) Release() {
	r.crit.Lock()
	defer r.crit.Unlock()
	r.held = adapter.Joypad{}
	r.gate.SetInput(r.held)
}

// Bound reports whether key is bound to a button.
func (r *Router) Bound(key string) bool {
	r.crit.Lock()
	defer r.crit.Unlock()
	_, ok := r.keys.Lookup(key)
	return ok
}

// Held returns the current joypad state.
func (r *Router) Held() adapter.Joypad {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.held
}

// SetKeymap replaces the bindings and releases every button.
func (r *Router) SetKeymap(keys Keymap) {
	r.crit.Lock()
	defer r.crit.Unlock()
	r.keys = keys
	r.held = adapter.Joypad{}
	logger.Logf("input", "keymap: %v", keys.Bindings())
}
