package progress

import (
	"errors"
	"testing"
	"time"
)

func TestSubscribeReceivesUpdates(t *testing.T) {
	r := NewReporter()
	ch := r.Subscribe()

	update := &ScanProgress{Phase: PhaseSize, Processed: 10, Message: "indexing"}
	r.UpdateScan(update)

	select {
	case got := <-ch:
		sp, ok := got.(*ScanProgress)
		if !ok {
			t.Fatalf("expected *ScanProgress, got %T", got)
		}
		if sp.Processed != 10 || sp.Phase != PhaseSize {
			t.Errorf("unexpected update: %+v", sp)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	r := NewReporter()
	ch := r.Subscribe()
	r.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("expected channel closed after unsubscribe")
	}

	// Updating after unsubscribe must not panic.
	r.UpdateScan(&ScanProgress{Phase: PhaseSize})
}

func TestSlowConsumerNeverBlocksProducer(t *testing.T) {
	r := NewReporter()
	r.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.UpdateScan(&ScanProgress{Phase: PhaseFull, Processed: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a slow consumer")
	}
}

func TestCompletionSurvivesFullBuffer(t *testing.T) {
	r := NewReporter()
	ch := r.Subscribe() // not drained until after the burst

	done := make(chan struct{})
	go func() {
		// Far more updates than the subscriber buffer holds, then the
		// terminal one. The burst may be dropped; the completion must
		// not be.
		for i := 0; i < 100; i++ {
			r.UpdateScan(&ScanProgress{Phase: PhaseFull, Processed: i})
		}
		r.UpdateScan(&ScanProgress{Phase: PhaseComplete, Message: "done"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked delivering the terminal update")
	}

	found := false
	for !found {
		select {
		case got := <-ch:
			if sp, ok := got.(*ScanProgress); ok && sp.Phase == PhaseComplete {
				found = true
			}
		default:
			t.Fatal("terminal update was dropped")
		}
	}
}

func TestSnapshotsReturnLatest(t *testing.T) {
	r := NewReporter()

	if r.ScanProgress() != nil || r.CleanProgress() != nil {
		t.Error("expected nil snapshots before any update")
	}

	r.UpdateScan(&ScanProgress{Phase: PhasePartial, Processed: 5})
	r.UpdateClean(&CleanProgress{Phase: PhaseCleaning, Done: 3})

	if got := r.ScanProgress(); got == nil || got.Processed != 5 {
		t.Errorf("unexpected scan snapshot: %+v", got)
	}
	if got := r.CleanProgress(); got == nil || got.Done != 3 {
		t.Errorf("unexpected clean snapshot: %+v", got)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	r := NewReporter()
	a := r.Subscribe()
	b := r.Subscribe()

	r.UpdateClean(&CleanProgress{Phase: PhaseCleaning, Done: 1})

	for _, ch := range []<-chan interface{}{a, b} {
		select {
		case got := <-ch:
			if _, ok := got.(*CleanProgress); !ok {
				t.Errorf("expected *CleanProgress, got %T", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed update")
		}
	}
}

func TestFormatScan(t *testing.T) {
	if got := FormatScan(nil); got != "Initializing..." {
		t.Errorf("nil progress: got %q", got)
	}

	got := FormatScan(&ScanProgress{Phase: PhaseFull, Processed: 2, Total: 4, Message: "hashing"})
	if got == "" {
		t.Error("expected non-empty status line")
	}

	errLine := FormatScan(&ScanProgress{Phase: PhaseError, Error: errors.New("boom")})
	if errLine == "" {
		t.Error("expected error status line")
	}
}
