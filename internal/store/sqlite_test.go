package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "monitor.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadStates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if got, err := s.LastStates(ctx, "1"); err != nil || len(got) != 0 {
		t.Fatalf("empty store = %v, %v", got, err)
	}

	first := []ContainerState{
		{ID: "a1", Name: "web", State: "running", Status: "Up 2 hours"},
		{ID: "b2", Name: "db", State: "exited", Status: "Exited (0)"},
	}
	if err := s.SaveStates(ctx, "1", first, nil); err != nil {
		t.Fatalf("SaveStates: %v", err)
	}
	// 另一个 endpoint 不受影响
	if err := s.SaveStates(ctx, "2", []ContainerState{{ID: "zz", Name: "other", State: "running"}}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.LastStates(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a1"].Name != "web" || got["b2"].State != "exited" || got["a1"].UpdatedAt == 0 {
		t.Fatalf("states = %+v", got)
	}

	// 替换：b2 消失
	if err := s.SaveStates(ctx, "1", first[:1], nil); err != nil {
		t.Fatal(err)
	}
	got, _ = s.LastStates(ctx, "1")
	if _, ok := got["b2"]; ok || len(got) != 1 {
		t.Fatalf("replace failed: %+v", got)
	}
	other, _ := s.LastStates(ctx, "2")
	if len(other) != 1 {
		t.Fatalf("endpoint 2 = %+v", other)
	}
}

func TestRecentTransitionsNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	changes := []Transition{
		{ID: "a1", Name: "web", From: "running", To: "exited", At: 100},
		{ID: "a1", Name: "web", From: "exited", To: "running", At: 200},
	}
	if err := s.SaveStates(ctx, "1", nil, changes[:1]); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveStates(ctx, "1", nil, changes[1:]); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentTransitions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].At != 200 || got[1].To != "exited" || got[0].Endpoint != "1" {
		t.Fatalf("transitions = %+v", got)
	}
	if one, _ := s.RecentTransitions(ctx, 1); len(one) != 1 {
		t.Fatalf("limit ignored: %+v", one)
	}
}
