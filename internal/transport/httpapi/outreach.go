package httpapi

import (
	"net/http"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

func outreachFilter(r *http.Request) (domain.OutreachFilter, error) {
	limit, offset, err := pagination(r)
	if err != nil {
		return domain.OutreachFilter{}, err
	}
	q := r.URL.Query()
	return domain.OutreachFilter{
		PropertyID: q.Get("property_id"),
		ThreadID:   q.Get("thread_id"),
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (a *API) ListSends(w http.ResponseWriter, r *http.Request) {
	filter, err := outreachFilter(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	sends, err := a.outreach.ListSends(r.Context(), filter)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "outreach sends", sends)
}

func (a *API) RecordSend(w http.ResponseWriter, r *http.Request) {
	var in domain.OutreachSend
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	send, err := a.outreach.RecordSend(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "send recorded", send)
}

func (a *API) ListResponses(w http.ResponseWriter, r *http.Request) {
	filter, err := outreachFilter(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out, err := a.outreach.ListResponses(r.Context(), filter)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "outreach responses", out)
}

func (a *API) RecordResponse(w http.ResponseWriter, r *http.Request) {
	var in usecase.InboundReply
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	resp, err := a.outreach.RecordResponse(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "response recorded", resp)
}
