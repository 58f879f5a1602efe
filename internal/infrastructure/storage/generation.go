package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.GenerationRepository = (*Repository)(nil)

var documentColumns = []string{
	"id", "COALESCE(property_id, '')", "doc_type", "COALESCE(title, '')", "content", "COALESCE(model, '')",
	"input_tokens", "output_tokens", "COALESCE(storage_url, '')", "COALESCE(rating, '')",
	"COALESCE(feedback_note, '')", "created_at", "updated_at",
}

func scanDocument(row rowScanner) (domain.GeneratedDocument, error) {
	var (
		d      domain.GeneratedDocument
		rating string
	)
	err := row.Scan(&d.ID, &d.PropertyID, &d.DocType, &d.Title, &d.Content, &d.Model,
		&d.InputTokens, &d.OutputTokens, &d.StorageURL, &rating, &d.FeedbackNote, &d.CreatedAt, &d.UpdatedAt)
	d.Rating = domain.Rating(rating)
	return d, err
}

func (r *Repository) CreateDocument(ctx context.Context, d domain.GeneratedDocument) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("generated_documents").
		Columns("id", "property_id", "doc_type", "title", "content", "model", "input_tokens", "output_tokens",
			"storage_url", "rating", "feedback_note", "created_at", "updated_at").
		Values(d.ID, d.PropertyID, d.DocType, d.Title, d.Content, d.Model, d.InputTokens, d.OutputTokens,
			d.StorageURL, string(d.Rating), d.FeedbackNote, d.CreatedAt, d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, id string) (domain.GeneratedDocument, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(documentColumns...).From("generated_documents").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.GeneratedDocument{}, err
	}
	d, err := scanDocument(row)
	if err != nil {
		return domain.GeneratedDocument{}, fmt.Errorf("get document %s: %w", id, classify(err))
	}
	return d, nil
}

// ListDocuments returns documents newest first, optionally for one property.
func (r *Repository) ListDocuments(ctx context.Context, propertyID string, limit, offset int) ([]domain.GeneratedDocument, error) {
	b := r.sb.Select(documentColumns...).From("generated_documents").
		OrderBy("created_at DESC", "id").
		Limit(pageLimit(limit)).
		Offset(pageOffset(offset))
	if propertyID != "" {
		b = b.Where(sq.Eq{"property_id": propertyID})
	}

	var out []domain.GeneratedDocument
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		d, err := scanDocument(row)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateDocument(ctx context.Context, d domain.GeneratedDocument) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("generated_documents").SetMap(map[string]any{
		"title":         d.Title,
		"content":       d.Content,
		"storage_url":   d.StorageURL,
		"rating":        string(d.Rating),
		"feedback_note": d.FeedbackNote,
		"updated_at":    d.UpdatedAt,
	}).Where(sq.Eq{"id": d.ID}))
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireAffected(affected, "document", d.ID)
}

func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Delete("generated_documents").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(affected, "document", id)
}

var contentColumns = []string{
	"id", "kind", "prompt", "output", "COALESCE(model, '')", "input_tokens", "output_tokens",
	"COALESCE(rating, '')", "COALESCE(feedback_note, '')", "created_at", "updated_at",
}

func scanContent(row rowScanner) (domain.ContentGeneration, error) {
	var (
		g      domain.ContentGeneration
		rating string
	)
	err := row.Scan(&g.ID, &g.Kind, &g.Prompt, &g.Output, &g.Model, &g.InputTokens, &g.OutputTokens,
		&rating, &g.FeedbackNote, &g.CreatedAt, &g.UpdatedAt)
	g.Rating = domain.Rating(rating)
	return g, err
}

func (r *Repository) CreateContent(ctx context.Context, g domain.ContentGeneration) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("content_generations").
		Columns("id", "kind", "prompt", "output", "model", "input_tokens", "output_tokens",
			"rating", "feedback_note", "created_at", "updated_at").
		Values(g.ID, g.Kind, g.Prompt, g.Output, g.Model, g.InputTokens, g.OutputTokens,
			string(g.Rating), g.FeedbackNote, g.CreatedAt, g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert content generation: %w", err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id string) (domain.ContentGeneration, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(contentColumns...).From("content_generations").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.ContentGeneration{}, err
	}
	g, err := scanContent(row)
	if err != nil {
		return domain.ContentGeneration{}, fmt.Errorf("get content generation %s: %w", id, classify(err))
	}
	return g, nil
}

func (r *Repository) ListContent(ctx context.Context, kind string, limit, offset int) ([]domain.ContentGeneration, error) {
	b := r.sb.Select(contentColumns...).From("content_generations").
		OrderBy("created_at DESC", "id").
		Limit(pageLimit(limit)).
		Offset(pageOffset(offset))
	if kind != "" {
		b = b.Where(sq.Eq{"kind": kind})
	}

	var out []domain.ContentGeneration
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		g, err := scanContent(row)
		if err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list content generations: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateContent(ctx context.Context, g domain.ContentGeneration) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("content_generations").SetMap(map[string]any{
		"output":        g.Output,
		"rating":        string(g.Rating),
		"feedback_note": g.FeedbackNote,
		"updated_at":    g.UpdatedAt,
	}).Where(sq.Eq{"id": g.ID}))
	if err != nil {
		return fmt.Errorf("update content generation: %w", err)
	}
	return requireAffected(affected, "content generation", g.ID)
}
