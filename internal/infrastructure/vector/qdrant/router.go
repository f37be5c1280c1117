package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// Router maps document types onto their collections. Provisioning is
// fail-closed: a write against a collection that did not exist yet is
// rejected for the current batch even though the schema gets created, so a
// half-provisioned store never absorbs data silently.
type Router struct {
	mu          sync.Mutex
	collections map[domain.DocType]*Collection
	ready       map[domain.DocType]bool
}

func NewRouter(collections map[domain.DocType]*Collection) *Router {
	return &Router{
		collections: collections,
		ready:       make(map[domain.DocType]bool, len(collections)),
	}
}

func (r *Router) Resolve(docType domain.DocType) (ports.SearchIndex, error) {
	collection, ok := r.collections[docType]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnknownDocType, "resolve index", fmt.Errorf("no collection for %q", docType))
	}
	return collection, nil
}

// EnsureIndexExists verifies the target collection is present. When it is
// missing, every registered collection is provisioned and ErrIndexNotReady
// is returned so the caller retries against a fully set-up store.
func (r *Router) EnsureIndexExists(ctx context.Context, docType domain.DocType) error {
	collection, ok := r.collections[docType]
	if !ok {
		return domain.WrapError(domain.ErrUnknownDocType, "ensure index", fmt.Errorf("no collection for %q", docType))
	}

	r.mu.Lock()
	ready := r.ready[docType]
	r.mu.Unlock()
	if ready {
		return nil
	}

	exists, err := collection.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		r.mu.Lock()
		r.ready[docType] = true
		r.mu.Unlock()
		return nil
	}

	slog.Warn("vector_collection_missing", "doc_type", string(docType), "collection", collection.Name())
	if err := r.provisionAll(ctx); err != nil {
		return err
	}
	return domain.WrapError(domain.ErrIndexNotReady, "ensure index",
		fmt.Errorf("collection %s was just provisioned", collection.Name()))
}

func (r *Router) provisionAll(ctx context.Context) error {
	for docType, collection := range r.collections {
		if err := collection.Create(ctx); err != nil {
			return fmt.Errorf("provision %s: %w", string(docType), err)
		}
	}
	return nil
}

func (r *Router) Types() []domain.DocType {
	out := make([]domain.DocType, 0, len(r.collections))
	for _, docType := range domain.KnownDocTypes() {
		if _, ok := r.collections[docType]; ok {
			out = append(out, docType)
		}
	}
	return out
}

var _ ports.IndexRouter = (*Router)(nil)
