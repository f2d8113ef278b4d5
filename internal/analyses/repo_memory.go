package analyses

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/profile"
)

type memoryEntry struct {
	rec Record
	seq uint64
}

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]memoryEntry
	seq  uint64
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]memoryEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores rec, assigning an ID and timestamps when missing.
func (r *MemoryRepo) Insert(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.seq++
	r.byID[rec.ID] = memoryEntry{rec: cloneRecord(rec), seq: r.seq}
	return rec.ID, nil
}

// Update applies patch to the record if owner matches.
func (r *MemoryRepo) Update(ctx context.Context, id, owner string, patch Patch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := patch.validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	if !ok || entry.rec.UserID != owner {
		return "", ErrNotFound
	}
	rec := entry.rec
	rec.Status = patch.Status
	if patch.CompanyName != "" {
		rec.CompanyName = patch.CompanyName
	}
	if patch.Completion != nil {
		bp := patch.Completion.BusinessProfile
		rec.BusinessProfile = &bp
		rec.Recommendations = patch.Completion.Recommendations
		rec.ProjectBlueprint = patch.Completion.ProjectBlueprint
		rec.ParsedData = nil
		rec.ErrorMessage = nil
	} else if patch.ErrorMessage != nil {
		msg := *patch.ErrorMessage
		rec.ErrorMessage = &msg
	}
	if patch.PDFURL != nil {
		u := *patch.PDFURL
		rec.BusinessProfilePDFURL = &u
	}
	rec.UpdatedAt = r.now()
	entry.rec = cloneRecord(rec)
	r.byID[id] = entry
	return id, nil
}

// GetByID returns a copy of the record if owner matches.
func (r *MemoryRepo) GetByID(ctx context.Context, id, owner string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[id]
	if !ok || entry.rec.UserID != owner {
		return Record{}, ErrNotFound
	}
	return cloneRecord(entry.rec), nil
}

// ListByOwner returns summaries newest first; insertion order breaks ties.
func (r *MemoryRepo) ListByOwner(ctx context.Context, owner string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]memoryEntry, 0)
	for _, entry := range r.byID {
		if entry.rec.UserID == owner {
			entries = append(entries, entry)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.rec.Summary())
	}
	return out, nil
}

// Len reports how many records are stored.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cloneRecord(rec Record) Record {
	out := rec
	if rec.ParsedData != nil {
		out.ParsedData = append(json.RawMessage(nil), rec.ParsedData...)
	}
	if rec.BusinessProfile != nil {
		bp := *rec.BusinessProfile
		if bp.OperatingRegions != nil {
			bp.OperatingRegions = append([]string(nil), bp.OperatingRegions...)
		}
		out.BusinessProfile = &bp
	}
	if rec.Recommendations != nil {
		out.Recommendations = append([]profile.Recommendation(nil), rec.Recommendations...)
	}
	if rec.ProjectBlueprint != nil {
		bp := *rec.ProjectBlueprint
		if bp.Deliverables != nil {
			bp.Deliverables = append([]string(nil), bp.Deliverables...)
		}
		if bp.Phases != nil {
			bp.Phases = append([]profile.Phase(nil), bp.Phases...)
		}
		out.ProjectBlueprint = &bp
	}
	if rec.BusinessProfilePDFURL != nil {
		u := *rec.BusinessProfilePDFURL
		out.BusinessProfilePDFURL = &u
	}
	if rec.ErrorMessage != nil {
		msg := *rec.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
