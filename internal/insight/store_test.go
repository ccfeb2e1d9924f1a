package insight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestStore_NewestFirstCapped(t *testing.T) {
	s := NewStore()

	for i := 0; i < Capacity+3; i++ {
		s.Add(Insight{Title: fmt.Sprintf("insight-%d", i)})
	}

	list := s.List()
	if len(list) != Capacity {
		t.Fatalf("Expected %d insights, got %d", Capacity, len(list))
	}
	if list[0].Title != "insight-12" {
		t.Errorf("Expected newest first, got %s", list[0].Title)
	}
	if list[Capacity-1].Title != "insight-3" {
		t.Errorf("Expected oldest retained insight-3, got %s", list[Capacity-1].Title)
	}
}

func TestStore_TrackLoading(t *testing.T) {
	s := NewStore()

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Track(func() (Insight, bool) {
			close(started)
			<-release
			return Insight{Title: "done"}, true
		})
	}()

	<-started
	if !s.Loading() {
		t.Error("Expected loading while a request is in flight")
	}

	close(release)
	wg.Wait()

	if s.Loading() {
		t.Error("Expected loading to clear")
	}
	if list := s.List(); len(list) != 1 || list[0].Title != "done" {
		t.Errorf("Unexpected insights: %+v", list)
	}
}

func TestStore_TrackSkipped(t *testing.T) {
	s := NewStore()

	_, ok := s.Track(func() (Insight, bool) { return Insight{}, false })
	if ok {
		t.Error("Expected skipped result")
	}
	if len(s.List()) != 0 {
		t.Error("Skipped result should not be stored")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore()

	var got []Insight
	s.Subscribe(func(in Insight) { got = append(got, in) })
	s.Add(Insight{Title: "a"})

	if len(got) != 1 || got[0].Title != "a" {
		t.Errorf("Expected listener to receive insight, got %+v", got)
	}
}

func TestStore_AnalyzeFailureAddsOneFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	s := NewStore()
	for i := 0; i < Capacity; i++ {
		s.Add(Insight{Type: KindContamination, Timestamp: time.Unix(int64(i), 0)})
	}

	s.Track(func() (Insight, bool) {
		return c.Analyze(context.Background(), goodReading(), nil), true
	})

	list := s.List()
	if len(list) != Capacity {
		t.Fatalf("Expected buffer capped at %d, got %d", Capacity, len(list))
	}
	if list[0].Type != KindRecommendation || list[0].Confidence != 0.7 {
		t.Errorf("Expected fallback at front, got %+v", list[0])
	}

	fallbacks := 0
	for _, in := range list {
		if in.Type == KindRecommendation {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		t.Errorf("Expected exactly one fallback, got %d", fallbacks)
	}
}
