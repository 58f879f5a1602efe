package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

func (a *API) ListQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	filter := domain.CallQueueFilter{
		PropertyID: r.URL.Query().Get("property_id"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		if filter.Status, err = domain.ParseCallStatus(raw); err != nil {
			a.respondError(w, r, err)
			return
		}
	}
	items, err := a.queue.List(r.Context(), filter)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "call queue", items)
}

type enqueueRequest struct {
	PropertyID string `json:"property_id"`
	Priority   int    `json:"priority"`
}

func (a *API) Enqueue(w http.ResponseWriter, r *http.Request) {
	var in enqueueRequest
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	items, err := a.queue.Enqueue(r.Context(), in.PropertyID, in.Priority)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "property enqueued", items)
}

func (a *API) QueueState(w http.ResponseWriter, r *http.Request) {
	state, err := a.queue.State(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "call queue state", state)
}

func (a *API) StartQueue(w http.ResponseWriter, r *http.Request) {
	res, err := a.queue.Start(r.Context(), Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	message := "call queue started"
	if res.Dialed == nil {
		message = "call queue started, nothing dialed"
	}
	respondOK(w, message, res)
}

func (a *API) PauseQueue(w http.ResponseWriter, r *http.Request) {
	state, err := a.queue.Pause(r.Context(), Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "call queue paused", state)
}

func (a *API) ClearQueue(w http.ResponseWriter, r *http.Request) {
	n, err := a.queue.Clear(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "call queue cleared", map[string]int{"cancelled": n})
}

func (a *API) CancelQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.queue.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "queue item cancelled", item)
}

func (a *API) RetryQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.queue.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "queue item requeued", item)
}
