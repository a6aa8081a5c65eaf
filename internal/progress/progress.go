// Package progress provides thread-safe progress reporting for the
// long-running operations: the multi-phase duplicate scan and the cleanup
// batch. Callers subscribe to a channel; producers never block on slow
// consumers.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Phase identifies the current stage of an operation.
type Phase string

const (
	PhaseSize     Phase = "size"     // grouping files by size
	PhasePartial  Phase = "partial"  // partial-content fingerprints
	PhaseFull     Phase = "full"     // full-content hashes
	PhaseCleaning Phase = "cleaning" // executing the cleanup batch
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// ScanProgress reports duplicate-detection progress. Total is 0 while the
// total is still unknown (phase 1 discovers it).
type ScanProgress struct {
	Phase     Phase
	Processed int
	Total     int
	Message   string
	StartTime time.Time
	Error     error
}

// CleanProgress reports cleanup-batch progress.
type CleanProgress struct {
	Phase       Phase
	CurrentPath string
	Done        int
	Total       int
	FreedBytes  int64
	Failed      int
	StartTime   time.Time
	Error       error
}

// Reporter provides thread-safe progress reporting with subscriber channels.
type Reporter struct {
	mu        sync.RWMutex
	scan      *ScanProgress
	clean     *CleanProgress
	listeners []chan interface{}
}

// NewReporter creates a progress Reporter.
func NewReporter() *Reporter {
	return &Reporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates.
func (r *Reporter) Subscribe() <-chan interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan interface{}, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel.
func (r *Reporter) Unsubscribe(ch <-chan interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// UpdateScan records scan progress and notifies listeners.
func (r *Reporter) UpdateScan(update *ScanProgress) {
	r.mu.Lock()
	r.scan = update
	listeners := make([]chan interface{}, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	r.notify(listeners, update)
}

// UpdateClean records cleanup progress and notifies listeners.
func (r *Reporter) UpdateClean(update *CleanProgress) {
	r.mu.Lock()
	r.clean = update
	listeners := make([]chan interface{}, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	r.notify(listeners, update)
}

func (r *Reporter) notify(listeners []chan interface{}, update interface{}) {
	terminal := isTerminal(update)
	for _, listener := range listeners {
		if !terminal {
			select {
			case listener <- update:
			default:
				// Skip if channel is full; stale progress is droppable.
			}
			continue
		}
		// Terminal updates must arrive or a subscriber waiting for the
		// end of the run would wait forever. Drop buffered progress to
		// make room instead of dropping the completion signal.
		for delivered := false; !delivered; {
			select {
			case listener <- update:
				delivered = true
			default:
				select {
				case <-listener:
				default:
				}
			}
		}
	}
}

func isTerminal(update interface{}) bool {
	switch u := update.(type) {
	case *ScanProgress:
		return u.Phase == PhaseComplete || u.Phase == PhaseError
	case *CleanProgress:
		return u.Phase == PhaseComplete || u.Phase == PhaseError
	}
	return false
}

// ScanProgress returns the latest scan progress snapshot.
func (r *Reporter) ScanProgress() *ScanProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scan
}

// CleanProgress returns the latest cleanup progress snapshot.
func (r *Reporter) CleanProgress() *CleanProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clean
}

// FormatScan returns a human-readable one-line scan status.
func FormatScan(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	switch p.Phase {
	case PhaseSize, PhasePartial, PhaseFull:
		if p.Total > 0 {
			return fmt.Sprintf("[%s] %d/%d %s", p.Phase, p.Processed, p.Total, p.Message)
		}
		return fmt.Sprintf("[%s] %s", p.Phase, p.Message)
	case PhaseComplete:
		return p.Message
	case PhaseError:
		return fmt.Sprintf("scan error: %v", p.Error)
	default:
		return "Scanning..."
	}
}
