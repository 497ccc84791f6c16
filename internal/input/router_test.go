package input

import (
	"strings"
	"testing"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
)

type fakeGate struct {
	open bool
	sent []adapter.Joypad
}

func (g *fakeGate) SetInput(j adapter.Joypad) bool {
	if !g.open {
		return false
	}
	g.sent = append(g.sent, j)
	return true
}

func TestRoute_Gated(t *testing.T) {
	g := &fakeGate{}
	r := NewRouter(g, nil)

	// paused
	if _, ok := r.Route("ArrowUp", true); ok {
		t.Fatalf("input forwarded while gate closed")
	}
	if len(g.sent) != 0 {
		t.Fatalf("gate received %v", g.sent)
	}

	// running
	r.Release()
	g.open = true
	r.Route("Z", true)
	j, ok := r.Route("ArrowUp", true)
	if !ok {
		t.Fatalf("input not forwarded while gate open")
	}
	if want := (adapter.Joypad{Up: true, A: true}); j != want {
		t.Fatalf("joypad got %v want %v", j, want)
	}
}

func TestRoute_HeldWhileGated(t *testing.T) {
	g := &fakeGate{open: true}
	r := NewRouter(g, nil)

	r.Route("ArrowLeft", true)
	g.open = false
	r.Route("ArrowLeft", false)
	g.open = true
	j, _ := r.Route("X", true)
	if want := (adapter.Joypad{B: true}); j != want {
		t.Fatalf("joypad got %v want %v", j, want)
	}
}

func TestRoute_Repeats(t *testing.T) {
	g := &fakeGate{open: true}
	r := NewRouter(g, nil)
	for i := 0; i < 3; i++ {
		if j, ok := r.Route("Enter", true); !ok || !j.Start {
			t.Fatalf("repeat %d got %v %v", i, j, ok)
		}
	}
	if len(g.sent) != 3 {
		t.Fatalf("forwarded %d times want 3", len(g.sent))
	}
	for _, j := range g.sent {
		if j != (adapter.Joypad{Start: true}) {
			t.Fatalf("forwarded %v", j)
		}
	}
}

func TestRoute_CaseInsensitive(t *testing.T) {
	g := &fakeGate{open: true}
	r := NewRouter(g, nil)
	for key, want := range map[string]adapter.Joypad{
		"arrowup":    {Up: true},
		"ARROWDOWN":  {Down: true},
		"ArrowLeft":  {Left: true},
		"arrowRight": {Right: true},
		"z":          {A: true},
		"X":          {B: true},
		"ENTER":      {Start: true},
		"shiftright": {Select: true},
	} {
		r.Release()
		j, ok := r.Route(key, true)
		if !ok || j != want {
			t.Fatalf("%s got %v %v want %v", key, j, ok, want)
		}
	}
}

func TestRoute_Unbound(t *testing.T) {
	g := &fakeGate{open: true}
	r := NewRouter(g, nil)
	if _, ok := r.Route("Space", true); ok {
		t.Fatalf("unbound key forwarded")
	}
	if len(g.sent) != 0 {
		t.Fatalf("gate received %v", g.sent)
	}
}

func TestNewKeymap(t *testing.T) {
	bindings := map[string]string{
		"W": "up", "S": "down", "A": "left", "D": "right",
		"K": "a", "J": "b", "Enter": "start", "Backspace": "select",
		"Space": "A",
	}
	k, err := NewKeymap(bindings)
	if err != nil {
		t.Fatalf("NewKeymap: %v", err)
	}
	g := &fakeGate{open: true}
	r := NewRouter(g, k)
	if j, ok := r.Route("w", true); !ok || !j.Up {
		t.Fatalf("custom binding got %v %v", j, ok)
	}
	if j, ok := r.Route("space", true); !ok || !j.A {
		t.Fatalf("second key for a button got %v %v", j, ok)
	}
	if _, ok := r.Route("ArrowUp", true); ok {
		t.Fatalf("default binding still active")
	}

	back := k.Bindings()
	if back["w"] != "up" || back["backspace"] != "select" {
		t.Fatalf("bindings got %v", back)
	}

	delete(bindings, "Backspace")
	if _, err := NewKeymap(bindings); err == nil || !strings.Contains(err.Error(), "Select") {
		t.Fatalf("missing button got %v", err)
	}

	bindings["Backspace"] = "select"
	bindings["w"] = "down"
	if _, err := NewKeymap(bindings); err == nil {
		t.Fatalf("key bound to two buttons accepted")
	}

	if _, err := NewKeymap(map[string]string{"T": "turbo"}); err == nil {
		t.Fatalf("unknown button accepted")
	}
}

func TestSetKeymap(t *testing.T) {
	g := &fakeGate{open: true}
	r := NewRouter(g, nil)
	r.Route("Z", true)
	r.SetKeymap(Keymap{"q": adapter.A})
	if r.Held() != (adapter.Joypad{}) {
		t.Fatalf("held state not cleared")
	}
	if j, ok := r.Route("q", true); !ok || !j.A {
		t.Fatalf("new binding got %v %v", j, ok)
	}
}
