package cms

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

//go:embed seed.json
var defaultSeed []byte

type seedDocument struct {
	UID         string          `json:"uid"`
	Type        string          `json:"type"`
	PublishedAt *time.Time      `json:"published_at"`
	Data        json.RawMessage `json:"data"`
}

// Seed loads the sample posts when the store is empty.
func (svc *Service) Seed(ctx context.Context) error {
	return svc.SeedFrom(ctx, defaultSeed)
}

// SeedFrom loads documents from a JSON array when the store is empty.
func (svc *Service) SeedFrom(ctx context.Context, content []byte) error {
	count, err := svc.docRepo.Count(ctx, Filter{Type: "", UID: ""})
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	if count > 0 {
		slog.DebugContext(ctx, "content store already has documents, skipping seed", "count", count)

		return nil
	}

	var docs []seedDocument

	err = json.Unmarshal(content, &docs)
	if err != nil {
		return fmt.Errorf("failed to decode seed: %w", err)
	}

	for _, doc := range docs {
		_, err := svc.CreateDocument(ctx, CreateDocumentRequest{
			UID:         doc.UID,
			Type:        doc.Type,
			PublishedAt: doc.PublishedAt,
			Data:        doc.Data,
		})
		if err != nil {
			return fmt.Errorf("failed to create seed document %q: %w", doc.UID, err)
		}
	}

	slog.InfoContext(ctx, "content store seeded", "documents", len(docs))

	return nil
}
