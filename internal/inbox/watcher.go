package inbox

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// fetchTimeout bounds a single mailbox scan.
const fetchTimeout = 30 * time.Second

// Finder scans a mailbox for sign-in tokens.
type Finder interface {
	FindLinkTokens(ctx context.Context, since time.Time) ([]string, error)
}

// FoundMsg carries a sign-in token picked up from the mailbox.
type FoundMsg struct {
	Token string
}

// Watcher polls a Finder in the background while a sign-in is pending
// and reports each new token once.
type Watcher struct {
	finder   Finder
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	found   chan FoundMsg
	seen    map[string]bool
}

// NewWatcher creates a Watcher polling every interval.
func NewWatcher(finder Finder, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		finder:   finder,
		interval: interval,
		logger:   logger,
		found:    make(chan FoundMsg, 4),
		seen:     make(map[string]bool),
	}
}

// Start begins polling for messages received since the given time and
// returns a command that waits for the first token.
func (w *Watcher) Start(since time.Time) tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return w.Wait()
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.poll(since, stop, done)
	return w.Wait()
}

// Stop halts polling and waits for the polling goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.running = false
	done := w.doneCh
	w.mu.Unlock()
	<-done
}

// Running reports whether a poll loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Wait returns a command that delivers the next FoundMsg. It yields nil
// once the watcher is stopped. Re-issue it after every FoundMsg.
func (w *Watcher) Wait() tea.Cmd {
	w.mu.Lock()
	stop := w.stopCh
	w.mu.Unlock()
	if stop == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg := <-w.found:
			return msg
		case <-stop:
			return nil
		}
	}
}

func (w *Watcher) poll(since time.Time, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.scan(since, stop)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) scan(since time.Time, stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	tokens, err := w.finder.FindLinkTokens(ctx, since)
	if err != nil {
		w.logger.Warn("inbox scan failed", zap.Error(err))
	}
	for _, tok := range tokens {
		if w.seen[tok] {
			continue
		}
		w.seen[tok] = true
		select {
		case w.found <- FoundMsg{Token: tok}:
		default:
			// Nobody is listening; the next scan will not resend it.
		}
	}
}
