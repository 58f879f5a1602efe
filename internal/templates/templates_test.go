package templates

import (
	"errors"
	"strings"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

func TestDefaultRegistryResolvesBuiltins(t *testing.T) {
	t.Parallel()

	r := Default()
	want := []string{"call_script", "follow_up_email", "listing_description", "offer_letter"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := r.Resolve("press_release"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPromptIncludesPropertyGraph(t *testing.T) {
	t.Parallel()

	tmpl, err := Default().Resolve("offer_letter")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	p := domain.Property{
		Address: "12 Elm St", City: "Austin", State: "TX", Zip: "78701", OwnerName: "Dana Ruiz",
		Contacts: []domain.Contact{{FirstName: "Dana", LastName: "Ruiz", Relationship: "owner",
			Phones: []domain.Phone{{Number: "+15125550100"}}}},
	}
	prompt := tmpl.Prompt(Request{Property: p, Instructions: "Mention a 14 day close."})

	for _, fragment := range []string{"12 Elm St, Austin, TX 78701", "Owner: Dana Ruiz", "Contact: Dana Ruiz (owner)", "14 day close"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
	if strings.Contains(prompt, "+15125550100") {
		t.Fatal("prompt must not leak phone numbers")
	}
	if tmpl.Title(p) != "Offer letter: 12 Elm St" {
		t.Fatalf("unexpected title %q", tmpl.Title(p))
	}
}
