package storage

import (
	"sync"
	"time"

	"adsreport/internal/models"
)

// ReportStore holds the last report produced by a pipeline run. Each run
// replaces the whole snapshot; concurrent runs are last-writer-wins.
type ReportStore struct {
	mu      sync.RWMutex
	report  *models.ReportSnapshot
	lastRun time.Time
}

func NewReportStore() *ReportStore {
	return &ReportStore{}
}

func (s *ReportStore) Replace(report *models.ReportSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report = report
	s.lastRun = time.Now()
}

// Get returns the cached report, or false when no run has completed yet.
func (s *ReportStore) Get() (*models.ReportSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.report != nil
}

func (s *ReportStore) GetLastRunTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

func (s *ReportStore) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report != nil
}
