package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

func (a *API) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	docs, err := a.generation.ListDocuments(r.Context(), r.URL.Query().Get("property_id"), limit, offset)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "documents", docs)
}

func (a *API) DocumentTypes(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "document types", a.generation.DocumentTypes())
}

func (a *API) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	var in usecase.GenerateDocumentInput
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	doc, err := a.generation.GenerateDocument(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "document generated", doc)
}

func (a *API) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := a.generation.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "document", doc)
}

func (a *API) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := a.generation.DeleteDocument(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "document deleted", nil)
}

func (a *API) DocumentFeedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.Feedback
	if err := decodeJSON(r, &fb); err != nil {
		a.respondError(w, r, err)
		return
	}
	doc, err := a.generation.DocumentFeedback(r.Context(), mux.Vars(r)["id"], fb)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "feedback saved", doc)
}

func (a *API) ListContent(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out, err := a.generation.ListContent(r.Context(), r.URL.Query().Get("kind"), limit, offset)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "content generations", out)
}

func (a *API) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var in usecase.GenerateContentInput
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	gen, err := a.generation.GenerateContent(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "content generated", gen)
}

func (a *API) ContentFeedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.Feedback
	if err := decodeJSON(r, &fb); err != nil {
		a.respondError(w, r, err)
		return
	}
	gen, err := a.generation.ContentFeedback(r.Context(), mux.Vars(r)["id"], fb)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "feedback saved", gen)
}

func (a *API) SynthesizeVoice(w http.ResponseWriter, r *http.Request) {
	var in domain.SpeechRequest
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.generation.SynthesizeVoice(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "audio generated", res)
}
