package selection

import (
	"sync"
	"testing"

	"taskdeck/internal/model"
)

func TestState_SetGetClear(t *testing.T) {
	s := New()
	if _, ok := s.Get(); ok {
		t.Fatalf("expected no selection initially")
	}

	s.Set(model.Project{ID: "p1", Name: "One"})
	got, ok := s.Get()
	if !ok || got.ID != "p1" || got.Name != "One" {
		t.Fatalf("unexpected selection: ok=%v got=%+v", ok, got)
	}

	s.Set(model.Project{ID: "p2", Name: "Two"})
	if got, _ := s.Get(); got.ID != "p2" {
		t.Fatalf("expected last writer to win, got %q", got.ID)
	}

	s.Clear()
	if _, ok := s.Get(); ok {
		t.Fatalf("expected selection cleared")
	}
}

func TestState_GetReturnsCopy(t *testing.T) {
	s := New()
	s.Set(model.Project{ID: "p1", Tasks: []model.Task{{ID: "t1"}}})

	got, _ := s.Get()
	got.Tasks[0].ID = "changed"

	again, _ := s.Get()
	if again.Tasks[0].ID != "t1" {
		t.Fatalf("expected stored snapshot to be unaffected, got %q", again.Tasks[0].ID)
	}
}

func TestState_SubscribeOrderAndCancel(t *testing.T) {
	s := New()
	var calls []string
	cancelA := s.Subscribe(func(p *model.Project) {
		if p == nil {
			calls = append(calls, "a:nil")
			return
		}
		calls = append(calls, "a:"+p.ID)
	})
	s.Subscribe(func(p *model.Project) {
		if p == nil {
			calls = append(calls, "b:nil")
			return
		}
		calls = append(calls, "b:"+p.ID)
	})

	s.Set(model.Project{ID: "p1"})
	cancelA()
	cancelA()
	s.Clear()

	want := []string{"a:p1", "b:p1", "b:nil"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestState_ObserverMayReadSelection(t *testing.T) {
	s := New()
	var seen string
	s.Subscribe(func(*model.Project) {
		p, _ := s.Get()
		seen = p.ID
	})
	s.Set(model.Project{ID: "p9"})
	if seen != "p9" {
		t.Fatalf("expected observer to read p9, got %q", seen)
	}
}

func TestState_ConcurrentUse(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(model.Project{ID: "p"})
				_, _ = s.Get()
				s.Clear()
			}
		}()
	}
	wg.Wait()
}
