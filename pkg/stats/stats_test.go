package stats

import (
	"sync"
	"testing"
)

func TestStats_Counters(t *testing.T) {
	s := New()

	s.AddResponse()
	s.AddResponse()
	s.AddCacheHit()
	s.AddNetworkRequest()
	s.AddError()
	s.AddRetry()
	s.AddRetry()
	s.AddRetry()
	s.SetQueueDepth(42)
	s.AddElapsed(30)
	s.AddElapsed(30)

	snap := s.Snapshot()
	if snap.Responses != 2 {
		t.Errorf("Responses = %d, want 2", snap.Responses)
	}
	if snap.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", snap.CacheHits)
	}
	if snap.NetworkRequests != 1 {
		t.Errorf("NetworkRequests = %d, want 1", snap.NetworkRequests)
	}
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}
	if snap.Retries != 3 {
		t.Errorf("Retries = %d, want 3", snap.Retries)
	}
	if snap.QueueDepth != 42 {
		t.Errorf("QueueDepth = %d, want 42", snap.QueueDepth)
	}
	if snap.ElapsedSeconds != 60 {
		t.Errorf("ElapsedSeconds = %d, want 60", snap.ElapsedSeconds)
	}
}

func TestStats_SetQueueDepthOverwrites(t *testing.T) {
	s := New()
	s.SetQueueDepth(100)
	s.SetQueueDepth(7)

	if got := s.Snapshot().QueueDepth; got != 7 {
		t.Errorf("QueueDepth = %d, want 7", got)
	}
}

func TestStats_ConcurrentIncrements(t *testing.T) {
	s := New()

	const workers = 50
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.AddResponse()
				s.AddCacheHit()
				s.AddRetry()
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	want := int64(workers * perWorker)
	if snap.Responses != want {
		t.Errorf("Responses = %d, want %d", snap.Responses, want)
	}
	if snap.CacheHits != want {
		t.Errorf("CacheHits = %d, want %d", snap.CacheHits, want)
	}
	if snap.Retries != want {
		t.Errorf("Retries = %d, want %d", snap.Retries, want)
	}
}
