package auth

import "testing"

func TestKeyState(t *testing.T) {
	state := NewKeyState()

	if state.IsReady() {
		t.Error("new key state must not be ready")
	}

	state.MarkReady()
	if !state.IsReady() {
		t.Error("expected ready after MarkReady")
	}

	state.Reset()
	if state.IsReady() {
		t.Error("expected not ready after Reset")
	}

	// Resetting an already-reset state stays a no-op.
	state.Reset()
	if state.IsReady() {
		t.Error("expected not ready after repeated Reset")
	}
}
