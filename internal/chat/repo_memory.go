package chat

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	msgs []Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Append(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *MemoryRepo) History(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	out, err := r.transcript(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Latest(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	out, err := r.transcript(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *MemoryRepo) transcript(ctx context.Context, ownerID, documentID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Message{}
	for _, m := range r.msgs {
		if m.UserID == ownerID && m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	// Insertion order breaks timestamp ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (r *MemoryRepo) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.msgs[:0]
	for _, m := range r.msgs {
		if m.UserID == ownerID && m.DocumentID == documentID {
			continue
		}
		kept = append(kept, m)
	}
	clear(r.msgs[len(kept):])
	r.msgs = kept
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context, ownerID string) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var c Counts
	for _, m := range r.msgs {
		if m.UserID != ownerID {
			continue
		}
		c.Messages++
		if m.Role == RoleUser {
			c.Questions++
		}
	}
	return c, nil
}
