package repository

import (
	"sync"

	"github.com/archiconstruct/chatbot/pkg/domain"
)

// conversationRepository holds the single session's message history in
// memory. The orchestrator is the only writer; the presentation layer reads
// snapshots. History lives for the process lifetime only.
type conversationRepository struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewConversationRepository() *conversationRepository {
	return &conversationRepository{}
}

func (c *conversationRepository) Append(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
}

// Update mutates the message with the given ID in place, preserving its
// position and identity. Reports whether the message was found.
func (c *conversationRepository) Update(id string, fn func(*domain.Message)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].ID == id {
			fn(&c.messages[i])
			return true
		}
	}
	return false
}

// Messages returns a snapshot copy of the history in insertion order.
func (c *conversationRepository) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *conversationRepository) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.messages)
}

func (c *conversationRepository) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
}
