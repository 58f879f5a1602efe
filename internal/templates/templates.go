package templates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

// Request carries everything a template needs to build its prompt.
type Request struct {
	Property     domain.Property
	Instructions string
}

// Template turns a property graph into a model prompt for one document type.
type Template interface {
	Name() string
	Title(p domain.Property) string
	SystemPrompt() string
	Prompt(req Request) string
}

// Registry keeps a mapping from document types to their templates.
type Registry struct {
	templates map[string]Template
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: map[string]Template{}}
}

// Default returns a registry with every built-in document type.
func Default() *Registry {
	r := NewRegistry()
	for _, t := range builtins {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) {
	if r.templates == nil {
		r.templates = map[string]Template{}
	}
	r.templates[t.Name()] = t
}

// Resolve returns a template by document type.
func (r *Registry) Resolve(docType string) (Template, error) {
	if t, ok := r.templates[strings.TrimSpace(docType)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("document type %q is not registered: %w", docType, domain.ErrInvalid)
}

// Names lists registered document types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type simpleTemplate struct {
	name   string
	title  string
	system string
	task   string
}

func (t simpleTemplate) Name() string         { return t.name }
func (t simpleTemplate) SystemPrompt() string { return t.system }

func (t simpleTemplate) Title(p domain.Property) string {
	return t.title + ": " + p.Address
}

func (t simpleTemplate) Prompt(req Request) string {
	var b strings.Builder
	b.WriteString(t.task)
	b.WriteString("\n\n")
	b.WriteString(DescribeProperty(req.Property))
	if extra := strings.TrimSpace(req.Instructions); extra != "" {
		b.WriteString("\nAdditional instructions:\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}

const agentVoice = "You write for a residential real-estate investment team. " +
	"Be concrete, warm and brief. Never invent facts that are not in the property details. " +
	"Return Markdown without a preamble."

var builtins = []Template{
	simpleTemplate{
		name:   "listing_description",
		title:  "Listing description",
		system: agentVoice,
		task:   "Write a listing description of 150 to 250 words for the property below.",
	},
	simpleTemplate{
		name:   "offer_letter",
		title:  "Offer letter",
		system: agentVoice + " Letters address the owner by name and stay respectful of their situation.",
		task:   "Draft a short cash offer letter to the owner of the property below. Leave the price as [OFFER AMOUNT].",
	},
	simpleTemplate{
		name:   "follow_up_email",
		title:  "Follow-up email",
		system: agentVoice,
		task:   "Write a follow-up email with a subject line to the owner of the property below after an earlier call.",
	},
	simpleTemplate{
		name:   "call_script",
		title:  "Call script",
		system: agentVoice + " Scripts are spoken aloud, so avoid lists longer than three items.",
		task:   "Write an outbound call script for the property below with an opener, discovery questions and objection handling.",
	},
}

// DescribeProperty renders the property graph as prompt context. Phone
// numbers are omitted.
func DescribeProperty(p domain.Property) string {
	var b strings.Builder
	b.WriteString("Property details:\n")
	fmt.Fprintf(&b, "- Address: %s\n", joinNonEmpty(", ", p.Address, p.City, strings.TrimSpace(p.State+" "+p.Zip)))
	if p.OwnerName != "" {
		fmt.Fprintf(&b, "- Owner: %s\n", p.OwnerName)
	}
	if p.EstimatedValue > 0 {
		fmt.Fprintf(&b, "- Estimated value: $%.0f\n", p.EstimatedValue)
	}
	if p.Source != "" {
		fmt.Fprintf(&b, "- Lead source: %s\n", p.Source)
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", p.Notes)
	}
	for _, c := range p.Contacts {
		line := c.FullName()
		if c.Relationship != "" {
			line += " (" + c.Relationship + ")"
		}
		fmt.Fprintf(&b, "- Contact: %s\n", line)
	}
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
