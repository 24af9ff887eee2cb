package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSweepRemovesOnlyStaleWorkspaces(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, "job_old")
	fresh := filepath.Join(root, "job_new")
	other := filepath.Join(root, "keepme")
	for _, dir := range []string{stale, fresh, other} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(stale, "audio_00.m4a"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	looseFile := filepath.Join(root, "leftover.part")
	if err := os.WriteFile(looseFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	touch(t, stale, 10*time.Hour)
	touch(t, other, 10*time.Hour)
	touch(t, looseFile, 10*time.Hour)

	s := NewScheduler(root, 1, 6, logger.Discard())
	if n := s.Sweep(); n != 2 {
		t.Fatalf("Sweep() removed %d, want 2", n)
	}

	for path, want := range map[string]bool{stale: false, looseFile: false, fresh: true, other: true} {
		_, err := os.Stat(path)
		if exists := err == nil; exists != want {
			t.Fatalf("%s exists = %v, want %v", filepath.Base(path), exists, want)
		}
	}
}

func TestSweepMissingDir(t *testing.T) {
	s := NewScheduler(filepath.Join(t.TempDir(), "absent"), 0, 0, logger.Discard())
	if n := s.Sweep(); n != 0 {
		t.Fatalf("Sweep() = %d, want 0", n)
	}
	s.Stop()
	s.Stop()
}
