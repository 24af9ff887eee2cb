package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
)

// WorkspacePrefix is the directory prefix of per-job workspaces
const WorkspacePrefix = "job_"

// Scheduler removes job workspaces left behind by crashed or killed runs
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, log *logger.Logger) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 6
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		log:      log.Component("cleanup"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval
func (s *Scheduler) Start() {
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.log.WithFields(logrus.Fields{"interval": s.interval, "max_age": s.maxAge}).Info("cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("cleanup scheduler stopped")
	})
}

// Sweep removes stale job workspaces and loose files older than the max age.
// It returns the number of entries removed.
func (s *Scheduler) Sweep() int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("cannot read temp dir")
		}
		return 0
	}

	now := s.now()
	var removed int
	var freed int64

	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), WorkspacePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		size := diskUsage(path)
		if err := os.RemoveAll(path); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("failed to delete stale entry")
			continue
		}
		removed++
		freed += size
		s.log.WithFields(logrus.Fields{"path": entry.Name(), "age": age.Round(time.Minute), "kb": size / 1024}).Debug("deleted stale entry")
	}

	if removed > 0 {
		s.log.WithFields(logrus.Fields{"removed": removed, "freed_mb": float64(freed) / (1024 * 1024)}).Info("cleanup complete")
	}
	return removed
}

func diskUsage(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && !d.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
