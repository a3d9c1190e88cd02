package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// SyncResult reports what a webhook delivery did to the mirror.
type SyncResult struct {
	Action   string            `json:"action"` // "upserted", "deleted", "none"
	IDs      []string          `json:"ids,omitempty"`
	Failures map[string]string `json:"failures,omitempty"`
}

// SyncService applies verified CMS webhook payloads to the product mirror.
// Handling is idempotent: providers redeliver on non-2xx or slow responses,
// and a replay only rewrites the same snapshot.
type SyncService struct {
	repo   Repository
	logger *log.Logger
}

func NewSyncService(repo Repository, logger *log.Logger) *SyncService {
	return &SyncService{repo: repo, logger: logger}
}

type syncPayload struct {
	ID      string          `json:"_id"`
	Type    string          `json:"_type"`
	Deleted []string        `json:"deleted"`
	Result  json.RawMessage `json:"result"`
}

type productDoc struct {
	ID          string        `json:"_id"`
	Type        string        `json:"_type"`
	Name        string        `json:"name"`
	Slug        SlugField     `json:"slug"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Category    CategoryLabel `json:"category"`
	ImageURL    string        `json:"imageUrl"`
	Alt         string        `json:"alt"`
	Stock       int           `json:"stock"`
	IsFeatured  bool          `json:"isFeatured"`
	SKU         string        `json:"sku"`
}

// Handle consumes a verified webhook body. A malformed JSON body is the only
// error; unknown document shapes report "none" rather than failing, and
// per-id delete failures are collected without aborting the batch.
func (s *SyncService) Handle(ctx context.Context, body []byte) (SyncResult, error) {
	var payload syncPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return SyncResult{}, fmt.Errorf("unmarshal sync payload: %w", err)
	}

	if len(payload.Deleted) > 0 {
		return s.handleDeleted(ctx, payload.Deleted), nil
	}

	// The document arrives either wrapped as {"result": {...}} or bare.
	doc, err := payload.document(body)
	if err != nil {
		return SyncResult{}, err
	}

	if doc.Type != "product" || doc.ID == "" {
		return SyncResult{Action: "none"}, nil
	}

	p := Product{
		ID:          NormalizeID(doc.ID),
		Name:        doc.Name,
		Slug:        string(doc.Slug),
		Description: doc.Description,
		Price:       doc.Price,
		Category:    string(doc.Category),
		ImageURL:    doc.ImageURL,
		Alt:         doc.Alt,
		Stock:       doc.Stock,
		IsFeatured:  doc.IsFeatured,
		SKU:         doc.SKU,
	}

	if err := s.repo.Upsert(ctx, &p); err != nil {
		return SyncResult{}, fmt.Errorf("upsert mirror row %s: %w", p.ID, err)
	}

	s.logger.Printf("product sync: upserted %s (%s)", p.ID, p.Name)
	return SyncResult{Action: "upserted", IDs: []string{p.ID}}, nil
}

func (p syncPayload) document(body []byte) (productDoc, error) {
	var doc productDoc
	if len(p.Result) > 0 {
		if err := json.Unmarshal(p.Result, &doc); err != nil {
			return productDoc{}, fmt.Errorf("unmarshal result document: %w", err)
		}
		return doc, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return productDoc{}, fmt.Errorf("unmarshal bare document: %w", err)
	}
	return doc, nil
}

func (s *SyncService) handleDeleted(ctx context.Context, ids []string) SyncResult {
	res := SyncResult{Action: "deleted"}
	for _, raw := range ids {
		id := NormalizeID(raw)
		if err := s.repo.Delete(ctx, id); err != nil {
			s.logger.Printf("product sync: delete %s failed: %v", id, err)
			if res.Failures == nil {
				res.Failures = make(map[string]string)
			}
			res.Failures[id] = err.Error()
			continue
		}
		res.IDs = append(res.IDs, id)
	}
	return res
}
