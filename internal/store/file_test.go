package store

import (
	"context"
	"path/filepath"
	"testing"

	logx "bunkbot/pkg/logx"
)

func openTempFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subs.json")
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTempFileStore(t)

	if on, err := s.Get(ctx, 100); err != nil || on {
		t.Fatalf("Get on fresh store = (%v, %v), want (false, nil)", on, err)
	}

	before, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}

	if err := s.SetEnabled(ctx, 100, true); err != nil {
		t.Fatalf("SetEnabled(true): %v", err)
	}
	if on, _ := s.Get(ctx, 100); !on {
		t.Fatal("Get after enable should be true")
	}

	// Disable removes the entry entirely.
	if err := s.SetEnabled(ctx, 100, false); err != nil {
		t.Fatalf("SetEnabled(false): %v", err)
	}
	if on, _ := s.Get(ctx, 100); on {
		t.Fatal("Get after disable should be false")
	}
	after, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if after != before {
		t.Fatalf("Len after round-trip = %d, want %d", after, before)
	}
}

func TestFileEnabledList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTempFileStore(t)

	for _, id := range []int64{300, 100, 200} {
		if err := s.SetEnabled(ctx, id, true); err != nil {
			t.Fatalf("SetEnabled(%d): %v", id, err)
		}
	}
	if err := s.SetEnabled(ctx, 200, false); err != nil {
		t.Fatalf("SetEnabled off: %v", err)
	}

	ids, err := s.Enabled(ctx)
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	want := []int64{100, 300}
	if len(ids) != len(want) {
		t.Fatalf("Enabled = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Enabled = %v, want %v", ids, want)
		}
	}
}

func TestFilePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "subs.json")

	s1, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.SetEnabled(ctx, 42, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	_ = s1.Close()

	s2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if on, _ := s2.Get(ctx, 42); !on {
		t.Fatal("subscription should survive reopen")
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	s, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s != nil {
		t.Fatal("disabled store should be nil")
	}

	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
