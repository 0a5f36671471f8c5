package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is an in-process scan history, used when no Firestore project is configured
type Memory struct {
	mu    sync.RWMutex
	scans map[model.BatchID]*model.ScanSummary
}

var _ interfaces.ScanRepository = (*Memory)(nil)

// NewMemory creates an empty in-memory scan history
func NewMemory() *Memory {
	return &Memory{
		scans: make(map[model.BatchID]*model.ScanSummary),
	}
}

func (m *Memory) PutScan(ctx context.Context, scan *model.ScanSummary) error {
	if scan == nil || scan.ID == "" {
		return goerr.New("scan ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *scan
	m.scans[scan.ID] = &c
	return nil
}

// GetScan returns the scan with id, or an error wrapping model.ErrNotFound
func (m *Memory) GetScan(ctx context.Context, id model.BatchID) (*model.ScanSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scan, ok := m.scans[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "scan not found", goerr.Value("id", id))
	}
	c := *scan
	return &c, nil
}

// ListScans returns scans ordered by processing time, newest first
func (m *Memory) ListScans(ctx context.Context, offset, limit int) ([]*model.ScanSummary, error) {
	m.mu.RLock()
	all := make([]*model.ScanSummary, 0, len(m.scans))
	for _, s := range m.scans {
		c := *s
		all = append(all, &c)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].ProcessedAt.Equal(all[j].ProcessedAt) {
			return all[i].ProcessedAt.After(all[j].ProcessedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*model.ScanSummary{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
