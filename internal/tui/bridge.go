package tui

import (
	"sync"

	"taskdeck/internal/viewmodel"

	tea "github.com/charmbracelet/bubbletea"
)

// bridge implements viewmodel.Presenter for the tea program. View-models call
// it from store goroutines; the program drains it one message at a time via
// waitForEvent. The queue is unbounded so callers never block, and repeated
// Changed calls collapse into one pending message.
type bridge struct {
	mu            sync.Mutex
	queue         []tea.Msg
	changedQueued bool
	closed        bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

var _ viewmodel.Presenter = (*bridge)(nil)

func newBridge() *bridge {
	return &bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (b *bridge) Changed() {
	b.mu.Lock()
	if b.changedQueued || b.closed {
		b.mu.Unlock()
		return
	}
	b.changedQueued = true
	b.queue = append(b.queue, vmChangedMsg{})
	b.mu.Unlock()
	b.signal()
}

func (b *bridge) Alert(a viewmodel.Alert) { b.push(alertMsg{alert: a}) }

func (b *bridge) Navigate(r viewmodel.Route) { b.push(navigateMsg{route: r}) }

func (b *bridge) push(msg tea.Msg) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	b.signal()
}

func (b *bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// next blocks until a message is queued or the bridge is closed.
func (b *bridge) next() (tea.Msg, bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue = b.queue[1:]
			if _, ok := msg.(vmChangedMsg); ok {
				b.changedQueued = false
			}
			b.mu.Unlock()
			return msg, true
		}
		b.mu.Unlock()

		select {
		case <-b.wake:
		case <-b.done:
			return nil, false
		}
	}
}

func (b *bridge) close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.queue = nil
		b.mu.Unlock()
		close(b.done)
	})
}

// waitForEvent delivers the next presenter message to Update. Update
// re-issues it after every bridge message.
func waitForEvent(b *bridge) tea.Cmd {
	return func() tea.Msg {
		msg, ok := b.next()
		if !ok {
			return bridgeClosedMsg{}
		}
		return msg
	}
}
