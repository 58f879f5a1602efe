package httpapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

func (a *API) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	leads, err := a.crm.ListLeads(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "crm leads", leads)
}

func (a *API) CreateLead(w http.ResponseWriter, r *http.Request) {
	var in usecase.NewLeadInput
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	lead, err := a.crm.CreateLead(r.Context(), in, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "crm lead created", lead)
}

func (a *API) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := a.crm.GetLead(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "crm lead", lead)
}

func (a *API) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var patch domain.CRMLeadPatch
	if err := decodeJSON(r, &patch); err != nil {
		a.respondError(w, r, err)
		return
	}
	lead, err := a.crm.UpdateLead(r.Context(), mux.Vars(r)["id"], patch, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "crm lead updated", lead)
}

func (a *API) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := a.crm.DeleteLead(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "crm lead deleted", nil)
}

func (a *API) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := a.crm.ListActivities(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "crm activities", activities)
}

type activityRequest struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

func (a *API) AddActivity(w http.ResponseWriter, r *http.Request) {
	var in activityRequest
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	activity, err := a.crm.AddActivity(r.Context(), mux.Vars(r)["id"], in.Kind, in.Body, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "crm activity created", activity)
}

func (a *API) PipelineStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.crm.Stats(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "pipeline stats", stats)
}

// PipelineChart renders the stats as a PNG bar chart.
func (a *API) PipelineChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.crm.RenderStats(r.Context(), &buf); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}
