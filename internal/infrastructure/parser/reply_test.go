package parser

import "testing"

func TestExtractReplyDropsGmailQuote(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	  <div dir="ltr">Yes, Thursday at 3pm works.<br>Dana</div>
	  <div class="gmail_quote">
	    <div class="gmail_attr">On Mon, Mar 2, 2026 at 9:14 AM Agent wrote:</div>
	    <blockquote>Would you be open to a quick call about 12 Elm St?</blockquote>
	  </div>
	</body></html>`

	got, err := NewReplyExtractor().ExtractReply(html)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Yes, Thursday at 3pm works.\nDana"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractReplyPlainText(t *testing.T) {
	t.Parallel()

	body := "Not interested, thanks.\n\nOn Tue, Mar 3, 2026 at 10:00 AM Agent <a@example.com> wrote:\n> Hi Dana\n> about the house"

	got, err := NewReplyExtractor().ExtractReply(body)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "Not interested, thanks." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestExtractReplyEmpty(t *testing.T) {
	t.Parallel()

	got, err := NewReplyExtractor().ExtractReply("   ")
	if err != nil || got != "" {
		t.Fatalf("expected empty reply, got %q, %v", got, err)
	}
}
