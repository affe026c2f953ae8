package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/mcpagents/core"
)

// Policy names a memory strategy in configuration.
type Policy string

const (
	PolicyPrivate Policy = "private"
	PolicyShared  Policy = "shared"
)

// ParsePolicy maps a configuration value to a Policy. The empty string
// selects PolicyPrivate.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPrivate:
		return PolicyPrivate, nil
	case PolicyShared:
		return PolicyShared, nil
	default:
		return "", fmt.Errorf("unknown memory policy %q", s)
	}
}

// Provider supplies the conversation a task runs against.
type Provider interface {
	Acquire(ctx context.Context) (*Lease, error)
}

// Lease grants exclusive use of a conversation until Release is called.
type Lease struct {
	conv    *core.Conversation
	fresh   bool
	release func()
	once    sync.Once
}

// Conversation returns the leased conversation.
func (l *Lease) Conversation() *core.Conversation { return l.conv }

// Fresh reports whether the conversation had no entries when leased, so the
// caller has to seed it with the system prompt and instructions.
func (l *Lease) Fresh() bool { return l.fresh }

// Release returns the lease. Calling it more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// Private creates a new conversation for every task.
type Private struct{}

// NewPrivate returns a Private provider.
func NewPrivate() *Private { return &Private{} }

// Acquire implements Provider.
func (p *Private) Acquire(ctx context.Context) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Lease{conv: core.NewConversation(), fresh: true}, nil
}

// Shared reuses one conversation across tasks. At most one lease is
// outstanding at any time.
type Shared struct {
	sem  chan struct{}
	mu   sync.Mutex
	conv *core.Conversation
}

// NewShared returns a Shared provider. The conversation is created on the
// first Acquire.
func NewShared() *Shared {
	return &Shared{sem: make(chan struct{}, 1)}
}

// Acquire waits for exclusive access to the shared conversation.
func (s *Shared) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	if s.conv == nil {
		s.conv = core.NewConversation()
	}
	conv := s.conv
	s.mu.Unlock()

	return &Lease{
		conv:    conv,
		fresh:   conv.Len() == 0,
		release: func() { <-s.sem },
	}, nil
}

// Conversation returns the current shared conversation, or nil before the
// first Acquire or after Reset.
func (s *Shared) Conversation() *core.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// Reset drops the shared conversation. An outstanding lease keeps the old
// one; the next Acquire starts over.
func (s *Shared) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = nil
}
