package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
	"github.com/Norvan25/homenest-nous-sub002/internal/templates"
)

const maxSpeechChars = 5000

// contentSystemPrompts keys free-form generations by kind.
var contentSystemPrompts = map[string]string{
	"chat":   "You are an assistant for a residential real-estate investment team. Answer concisely.",
	"sms":    "You write SMS messages to property owners. Stay under 300 characters and use no links or emojis.",
	"email":  "You write short, friendly outreach emails to property owners. Include a subject line.",
	"script": "You write spoken call scripts for an AI phone agent calling property owners. Keep sentences short.",
}

// GenerationDeps wires the text and voice vendors.
type GenerationDeps struct {
	Repository ports.GenerationRepository
	Properties ports.PropertyRepository
	Generator  ports.TextGenerator
	Speech     ports.SpeechSynthesizer
	Store      ports.ObjectStore
	Templates  *templates.Registry
	MaxTokens  int
	Clock      Clock
	Logger     *slog.Logger
}

// Generation produces and keeps AI-written documents, drafts and audio.
type Generation struct {
	repo       ports.GenerationRepository
	properties ports.PropertyRepository
	generator  ports.TextGenerator
	speech     ports.SpeechSynthesizer
	store      ports.ObjectStore
	templates  *templates.Registry
	maxTokens  int
	now        Clock
	logger     *slog.Logger
}

// NewGeneration constructs the generation service.
func NewGeneration(deps GenerationDeps) *Generation {
	registry := deps.Templates
	if registry == nil {
		registry = templates.Default()
	}
	return &Generation{
		repo:       deps.Repository,
		properties: deps.Properties,
		generator:  deps.Generator,
		speech:     deps.Speech,
		store:      deps.Store,
		templates:  registry,
		maxTokens:  deps.MaxTokens,
		now:        orClock(deps.Clock),
		logger:     orLogger(deps.Logger, "generation"),
	}
}

// GenerateDocumentInput selects the template and its subject.
type GenerateDocumentInput struct {
	PropertyID   string `json:"property_id"`
	DocType      string `json:"doc_type"`
	Instructions string `json:"instructions"`
}

// GenerateDocument renders a template over the property graph, stores the
// result and archives it when object storage is configured.
func (g *Generation) GenerateDocument(ctx context.Context, in GenerateDocumentInput) (domain.GeneratedDocument, error) {
	if g.generator == nil {
		return domain.GeneratedDocument{}, fmt.Errorf("text generator not configured")
	}
	tmpl, err := g.templates.Resolve(in.DocType)
	if err != nil {
		return domain.GeneratedDocument{}, err
	}

	property, err := g.properties.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return domain.GeneratedDocument{}, err
	}
	if property.Contacts, err = g.properties.ListContactGraph(ctx, in.PropertyID); err != nil {
		return domain.GeneratedDocument{}, fmt.Errorf("load contacts: %w", err)
	}

	prompt := tmpl.Prompt(templates.Request{Property: property, Instructions: in.Instructions})
	completion, err := g.generator.Complete(ctx, tmpl.SystemPrompt(), []domain.ChatMessage{{Role: "user", Content: prompt}}, g.maxTokens)
	if err != nil {
		return domain.GeneratedDocument{}, fmt.Errorf("generate %s: %w", tmpl.Name(), err)
	}

	now := g.now()
	doc := domain.GeneratedDocument{
		ID:           newID(),
		PropertyID:   property.ID,
		DocType:      tmpl.Name(),
		Title:        tmpl.Title(property),
		Content:      strings.TrimSpace(completion.Text),
		Model:        completion.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if g.store != nil {
		url, err := g.store.Put(ctx, "documents/"+doc.ID+".md", []byte(doc.Content), "text/markdown; charset=utf-8")
		if err != nil {
			g.logger.Warn("archive document failed", "document_id", doc.ID, "error", err)
		} else {
			doc.StorageURL = url
		}
	}

	if err := g.repo.CreateDocument(ctx, doc); err != nil {
		return domain.GeneratedDocument{}, err
	}
	g.logger.Info("document generated",
		"document_id", doc.ID,
		"doc_type", doc.DocType,
		"input_tokens", doc.InputTokens,
		"output_tokens", doc.OutputTokens,
	)
	return doc, nil
}

func (g *Generation) ListDocuments(ctx context.Context, propertyID string, limit, offset int) ([]domain.GeneratedDocument, error) {
	docs, err := g.repo.ListDocuments(ctx, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.GeneratedDocument{}
	}
	return docs, nil
}

func (g *Generation) GetDocument(ctx context.Context, id string) (domain.GeneratedDocument, error) {
	return g.repo.GetDocument(ctx, id)
}

func (g *Generation) DeleteDocument(ctx context.Context, id string) error {
	return g.repo.DeleteDocument(ctx, id)
}

// DocumentTypes lists the registered templates.
func (g *Generation) DocumentTypes() []string {
	return g.templates.Names()
}

func (g *Generation) DocumentFeedback(ctx context.Context, id string, fb domain.Feedback) (domain.GeneratedDocument, error) {
	rating, err := domain.ParseRating(string(fb.Rating))
	if err != nil {
		return domain.GeneratedDocument{}, err
	}
	doc, err := g.repo.GetDocument(ctx, id)
	if err != nil {
		return domain.GeneratedDocument{}, err
	}
	doc.Rating = rating
	doc.FeedbackNote = strings.TrimSpace(fb.Note)
	doc.UpdatedAt = g.now()
	if err := g.repo.UpdateDocument(ctx, doc); err != nil {
		return domain.GeneratedDocument{}, err
	}
	return doc, nil
}

// GenerateContentInput is a chat-style request. History holds earlier
// turns, oldest first.
type GenerateContentInput struct {
	Kind    string               `json:"kind"`
	Prompt  string               `json:"prompt"`
	History []domain.ChatMessage `json:"history"`
}

func (g *Generation) GenerateContent(ctx context.Context, in GenerateContentInput) (domain.ContentGeneration, error) {
	if g.generator == nil {
		return domain.ContentGeneration{}, fmt.Errorf("text generator not configured")
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = "chat"
	}
	system, ok := contentSystemPrompts[kind]
	if !ok {
		return domain.ContentGeneration{}, fmt.Errorf("content kind %q: %w", in.Kind, domain.ErrInvalid)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return domain.ContentGeneration{}, fmt.Errorf("prompt is required: %w", domain.ErrInvalid)
	}

	messages := make([]domain.ChatMessage, 0, len(in.History)+1)
	for _, m := range in.History {
		if m.Role != "user" && m.Role != "assistant" {
			return domain.ContentGeneration{}, fmt.Errorf("history role %q: %w", m.Role, domain.ErrInvalid)
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: prompt})

	completion, err := g.generator.Complete(ctx, system, messages, g.maxTokens)
	if err != nil {
		return domain.ContentGeneration{}, fmt.Errorf("generate %s: %w", kind, err)
	}

	now := g.now()
	gen := domain.ContentGeneration{
		ID:           newID(),
		Kind:         kind,
		Prompt:       prompt,
		Output:       strings.TrimSpace(completion.Text),
		Model:        completion.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.repo.CreateContent(ctx, gen); err != nil {
		return domain.ContentGeneration{}, err
	}
	return gen, nil
}

func (g *Generation) ListContent(ctx context.Context, kind string, limit, offset int) ([]domain.ContentGeneration, error) {
	out, err := g.repo.ListContent(ctx, strings.ToLower(strings.TrimSpace(kind)), limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ContentGeneration{}
	}
	return out, nil
}

func (g *Generation) ContentFeedback(ctx context.Context, id string, fb domain.Feedback) (domain.ContentGeneration, error) {
	rating, err := domain.ParseRating(string(fb.Rating))
	if err != nil {
		return domain.ContentGeneration{}, err
	}
	gen, err := g.repo.GetContent(ctx, id)
	if err != nil {
		return domain.ContentGeneration{}, err
	}
	gen.Rating = rating
	gen.FeedbackNote = strings.TrimSpace(fb.Note)
	gen.UpdatedAt = g.now()
	if err := g.repo.UpdateContent(ctx, gen); err != nil {
		return domain.ContentGeneration{}, err
	}
	return gen, nil
}

// SynthesizeVoice renders speech and uploads it; the caller gets a URL.
func (g *Generation) SynthesizeVoice(ctx context.Context, req domain.SpeechRequest) (domain.SpeechResult, error) {
	if g.speech == nil || g.store == nil {
		return domain.SpeechResult{}, fmt.Errorf("voice synthesis not configured")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return domain.SpeechResult{}, fmt.Errorf("text is required: %w", domain.ErrInvalid)
	}
	if len([]rune(req.Text)) > maxSpeechChars {
		return domain.SpeechResult{}, fmt.Errorf("text longer than %d characters: %w", maxSpeechChars, domain.ErrInvalid)
	}

	audio, contentType, err := g.speech.Synthesize(ctx, req)
	if err != nil {
		return domain.SpeechResult{}, fmt.Errorf("synthesize: %w", err)
	}
	url, err := g.store.Put(ctx, "voice/"+newID()+".mp3", audio, contentType)
	if err != nil {
		return domain.SpeechResult{}, fmt.Errorf("store audio: %w", err)
	}
	return domain.SpeechResult{URL: url, ContentType: contentType, Bytes: len(audio)}, nil
}
