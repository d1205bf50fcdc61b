package auth

import (
	"log/slog"
	"sync"
)

// keyState tracks whether the embedding shell has a working provider key
// selected. A credential-invalid fault resets it so the shell re-prompts for
// authorization.
type keyState struct {
	mu    sync.Mutex
	ready bool
}

func NewKeyState() *keyState {
	return &keyState{}
}

func (k *keyState) MarkReady() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.ready = true
}

func (k *keyState) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.ready {
		slog.Info("Provider key marked not ready, re-authorization required")
	}
	k.ready = false
}

func (k *keyState) IsReady() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.ready
}
