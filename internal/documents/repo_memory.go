package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != ownerID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string, f Filter, limit int) ([]Document, error) {
	return r.find(ctx, ownerID, limit, func(doc Document) bool {
		return f.matches(doc)
	})
}

func (r *MemoryRepo) Search(ctx context.Context, ownerID, query string, f Filter, limit int) ([]Document, error) {
	return r.find(ctx, ownerID, limit, func(doc Document) bool {
		if !f.matches(doc) {
			return false
		}
		return containsFold(doc.Title, query) || containsFold(doc.TextContent, query)
	})
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != ownerID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum Summary
	companies := map[string]struct{}{}
	industries := map[string]struct{}{}
	for _, doc := range r.data {
		if doc.UserID != ownerID {
			continue
		}
		sum.TotalDocuments++
		sum.TotalPages += int64(doc.PageCount)
		if doc.Company != nil {
			companies[*doc.Company] = struct{}{}
		}
		if doc.Industry != nil {
			industries[*doc.Industry] = struct{}{}
		}
	}
	sum.Companies = sortedKeys(companies)
	sum.Industries = sortedKeys(industries)
	return sum, nil
}

func (r *MemoryRepo) find(ctx context.Context, ownerID string, limit int, keep func(Document) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	docs := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID == ownerID && keep(doc) {
			docs = append(docs, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadDate.After(docs[j].UploadDate)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (f Filter) matches(doc Document) bool {
	if f.Company != "" && !containsFold(deref(doc.Company), f.Company) {
		return false
	}
	if f.Industry != "" && !containsFold(deref(doc.Industry), f.Industry) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
