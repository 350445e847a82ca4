package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Report
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Report),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the report.
func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := r.now()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[report.ID] = report
	return nil
}

// GetByID returns a report by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// Update applies a partial update. Concurrent updates to one id are
// last-write-wins per field.
func (r *MemoryRepo) Update(ctx context.Context, reportID string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[reportID]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&report)
	report.UpdatedAt = r.now()
	r.byID[reportID] = report
	return nil
}

// ListByOwner returns a profile's reports, newest first, with limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, userID, profileID string, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	owned := make([]Report, 0)
	for _, report := range r.byID {
		if report.UserID == userID && report.ProfileID == profileID {
			owned = append(owned, report)
		}
	}
	r.mu.RUnlock()

	if offset >= len(owned) {
		return []Report{}, nil
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return owned[offset:end], nil
}

// Delete removes a report.
func (r *MemoryRepo) Delete(ctx context.Context, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[reportID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, reportID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
