// Package cms serves a Prismic compatible content API from a local document store.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// maxPage keeps (page-1)*pageSize within int.
	maxPage = math.MaxInt / MaxPageSize
)

type Service struct {
	docRepo DocumentRepository
}

func NewService(docRepo DocumentRepository) *Service {
	return &Service{
		docRepo: docRepo,
	}
}

type SearchRequest struct {
	Type     string
	UID      string
	Page     int
	PageSize int
	// Fetch limits data to the listed fields, written as "<type>.<field>".
	Fetch []string
}

type SearchResult struct {
	Page         int
	PageSize     int
	TotalResults int
	TotalPages   int
	Documents    []*Document
}

func (r SearchResult) HasNextPage() bool {
	return r.Page < r.TotalPages
}

func (svc *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Page == 0 {
		req.Page = 1
	}

	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}

	if req.Page < 0 {
		return nil, InvalidQueryError{Reason: "page must be positive"}
	}

	if req.Page > maxPage {
		return nil, InvalidQueryError{Reason: fmt.Sprintf("page must not exceed %d", maxPage)}
	}

	if req.PageSize < 0 || req.PageSize > MaxPageSize {
		return nil, InvalidQueryError{Reason: fmt.Sprintf("pageSize must be between 1 and %d", MaxPageSize)}
	}

	filter := Filter{Type: req.Type, UID: req.UID}

	total, err := svc.docRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	docs, err := svc.docRepo.List(ctx, filter, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if len(req.Fetch) > 0 {
		for _, doc := range docs {
			doc.Data, err = projectData(doc.Type, doc.Data, req.Fetch)
			if err != nil {
				return nil, fmt.Errorf("failed to project document %s: %w", doc.ID, err)
			}
		}
	}

	return &SearchResult{
		Page:         req.Page,
		PageSize:     req.PageSize,
		TotalResults: total,
		TotalPages:   (total + req.PageSize - 1) / req.PageSize,
		Documents:    docs,
	}, nil
}

type CreateDocumentRequest struct {
	UID         string
	Type        string
	PublishedAt *time.Time
	Data        json.RawMessage
}

func (svc *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	if req.Type == "" {
		return nil, InvalidQueryError{Reason: "document type is required"}
	}

	if !json.Valid(req.Data) {
		return nil, InvalidQueryError{Reason: "document data must be valid json"}
	}

	doc := &Document{
		ID:                   uuid.NewString(),
		UID:                  req.UID,
		Type:                 req.Type,
		FirstPublicationDate: req.PublishedAt,
		LastPublicationDate:  req.PublishedAt,
		Data:                 req.Data,
	}

	err := svc.docRepo.Insert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return doc, nil
}

// projectData keeps the fields of docType named in fetch, e.g. "post.title" keeps "title".
func projectData(docType string, data json.RawMessage, fetch []string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage

	err := json.Unmarshal(data, &fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	projected := make(map[string]json.RawMessage, len(fetch))

	for _, f := range fetch {
		typ, field, ok := strings.Cut(strings.TrimSpace(f), ".")
		if !ok || typ != docType {
			continue
		}

		if v, found := fields[field]; found {
			projected[field] = v
		}
	}

	result, err := json.Marshal(projected)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}

	return result, nil
}
