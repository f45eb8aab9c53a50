package approval

import "sync"

// notifier is the in-process fast path for wait_for: decide() broadcasts a
// terminal state to any goroutine waiting in this process, so most waits
// resolve without polling. It is not a substitute for persistence — a
// decision made by another process (or pod) is only visible once the
// DB-polling fallback in WaitFor catches up, the same "in-memory fast path
// + DB source of truth" split the queue pool uses for active sessions.
type notifier struct {
	mu   sync.Mutex
	subs map[string][]chan State
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string][]chan State)}
}

// subscribe registers a buffered channel that receives at most one
// terminal-state notification for approvalID. Callers must call the
// returned cancel func once done waiting, to avoid leaking the
// registration.
func (n *notifier) subscribe(approvalID string) (ch <-chan State, cancel func()) {
	c := make(chan State, 1)
	n.mu.Lock()
	n.subs[approvalID] = append(n.subs[approvalID], c)
	n.mu.Unlock()

	return c, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs := n.subs[approvalID]
		for i, sub := range subs {
			if sub == c {
				n.subs[approvalID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(n.subs[approvalID]) == 0 {
			delete(n.subs, approvalID)
		}
	}
}

func (n *notifier) publish(approvalID string, state State) {
	n.mu.Lock()
	subs := n.subs[approvalID]
	n.mu.Unlock()

	for _, c := range subs {
		select {
		case c <- state:
		default:
		}
	}
}
