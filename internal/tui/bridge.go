package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/tasks"
)

// mailbox holds at most one value; a put replaces an unread one unless the
// unread one is newer. Snapshots carry a sequence number, so dropping
// intermediate ones is safe.
type mailbox[T any] struct {
	mu    sync.Mutex
	ch    chan T
	newer func(a, b T) bool
}

func newMailbox[T any](newer func(a, b T) bool) *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, 1), newer: newer}
}

// put serializes writers; the reader only ever drains, so the send after
// the drain cannot block.
func (m *mailbox[T]) put(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case old := <-m.ch:
		if m.newer != nil && m.newer(old, v) {
			v = old
		}
	default:
	}
	m.ch <- v
}

// Bridge carries controller notifications from their goroutines into the
// Bubble Tea loop. Create it first and hand its methods to the controllers
// as notify callbacks.
type Bridge struct {
	tasks        *mailbox[tasks.Snapshot]
	focus        *mailbox[focus.Snapshot]
	unauthorized *mailbox[struct{}]
}

func NewBridge() *Bridge {
	return &Bridge{
		tasks:        newMailbox(func(a, b tasks.Snapshot) bool { return a.Seq > b.Seq }),
		focus:        newMailbox(func(a, b focus.Snapshot) bool { return a.Seq > b.Seq }),
		unauthorized: newMailbox[struct{}](nil),
	}
}

func (b *Bridge) Tasks(s tasks.Snapshot) { b.tasks.put(s) }

func (b *Bridge) Focus(s focus.Snapshot) { b.focus.put(s) }

// Unauthorized is the global logout hook for the API client.
func (b *Bridge) Unauthorized() { b.unauthorized.put(struct{}{}) }

func (b *Bridge) waitTasks() tea.Cmd {
	return func() tea.Msg { return tasksSnapshotMsg{snap: <-b.tasks.ch} }
}

func (b *Bridge) waitFocus() tea.Cmd {
	return func() tea.Msg { return focusSnapshotMsg{snap: <-b.focus.ch} }
}

func (b *Bridge) waitUnauthorized() tea.Cmd {
	return func() tea.Msg {
		<-b.unauthorized.ch
		return unauthorizedMsg{}
	}
}
