package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/deixis/shellbridge/internal/executor"
)

func sample(id string) *executor.Result {
	return &executor.Result{
		RequestID: id,
		Command:   "echo " + id,
		Success:   true,
		Stdout:    id + "\n",
	}
}

func TestDiskStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStore(filepath.Join(dir, "results"))

	want := sample("abc")
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("abc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RequestID != want.RequestID || got.Stdout != want.Stdout {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	// The backing file must exist under the configured directory.
	if _, err := os.Stat(filepath.Join(dir, "results", "abc.json")); err != nil {
		t.Errorf("expected result file on disk: %v", err)
	}
}

func TestDiskStore_LoadMissing(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	if _, err := s.Load("no-such-id"); err == nil {
		t.Error("expected error loading unknown request ID")
	}
}

func TestLRUStore_DelegatesToBack(t *testing.T) {
	disk := NewDiskStore(t.TempDir())
	s := NewLRUStore(2, disk)

	if err := s.Save(sample("one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("one")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RequestID != "one" {
		t.Errorf("RequestID = %q, want one", got.RequestID)
	}

	// The disk copy must exist independently of the cache.
	if _, err := disk.Load("one"); err != nil {
		t.Errorf("backing store missing result: %v", err)
	}
}

func TestLRUStore_EvictsBeyondCapacity(t *testing.T) {
	disk := NewDiskStore(t.TempDir())
	s := NewLRUStore(2, disk)

	for i := range 3 {
		if err := s.Save(sample(fmt.Sprintf("id-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	s.mu.Lock()
	_, cached := s.items["id-0"]
	size := len(s.items)
	s.mu.Unlock()
	if cached {
		t.Error("id-0 still cached, want evicted")
	}
	if size != 2 {
		t.Errorf("cache size = %d, want 2", size)
	}

	// Evicted entries are still loadable through the backing store.
	if _, err := s.Load("id-0"); err != nil {
		t.Errorf("Load after eviction: %v", err)
	}
}
