package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

func (a *API) ListProperties(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	props, err := a.leads.ListProperties(r.Context(), domain.PropertyFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "properties", props)
}

func (a *API) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.Property
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.leads.CreateProperty(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "property created", p)
}

func (a *API) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := a.leads.GetProperty(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "property", p)
}

func (a *API) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	var patch domain.PropertyPatch
	if err := decodeJSON(r, &patch); err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.leads.UpdateProperty(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "property updated", p)
}

func (a *API) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := a.leads.DeleteProperty(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "property deleted", nil)
}

func (a *API) AddContact(w http.ResponseWriter, r *http.Request) {
	var in domain.Contact
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	c, err := a.leads.AddContact(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "contact created", c)
}

func (a *API) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var patch domain.ContactPatch
	if err := decodeJSON(r, &patch); err != nil {
		a.respondError(w, r, err)
		return
	}
	c, err := a.leads.UpdateContact(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "contact updated", c)
}

func (a *API) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := a.leads.DeleteContact(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "contact deleted", nil)
}

func (a *API) AddPhone(w http.ResponseWriter, r *http.Request) {
	var in domain.Phone
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	ph, err := a.leads.AddPhone(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "phone created", ph)
}

func (a *API) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	var patch domain.PhonePatch
	if err := decodeJSON(r, &patch); err != nil {
		a.respondError(w, r, err)
		return
	}
	ph, err := a.leads.UpdatePhone(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "phone updated", ph)
}

func (a *API) DeletePhone(w http.ResponseWriter, r *http.Request) {
	if err := a.leads.DeletePhone(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "phone deleted", nil)
}

func (a *API) AddEmail(w http.ResponseWriter, r *http.Request) {
	var in domain.Email
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	e, err := a.leads.AddEmail(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "email created", e)
}

func (a *API) DeleteEmail(w http.ResponseWriter, r *http.Request) {
	if err := a.leads.DeleteEmail(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "email deleted", nil)
}
