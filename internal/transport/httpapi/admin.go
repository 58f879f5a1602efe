package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.admin.ListUsers(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "users", users)
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in usecase.NewUserInput
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.admin.CreateUser(r.Context(), in, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondCreated(w, "user created", user)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (a *API) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.admin.SetRole(r.Context(), mux.Vars(r)["id"], in.Role, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "role updated", user)
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.admin.DeleteUser(r.Context(), mux.Vars(r)["id"], Actor(r.Context())); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "user deleted", nil)
}

func (a *API) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.admin.ListSettings(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "settings", settings)
}

func (a *API) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := a.admin.GetSetting(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "setting", setting)
}

type settingRequest struct {
	Value json.RawMessage `json:"value"`
}

func (a *API) PutSetting(w http.ResponseWriter, r *http.Request) {
	var in settingRequest
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, r, err)
		return
	}
	setting, err := a.admin.PutSetting(r.Context(), mux.Vars(r)["key"], in.Value, Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "setting saved", setting)
}

func (a *API) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := a.admin.DeleteSetting(r.Context(), mux.Vars(r)["key"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "setting deleted", nil)
}

func (a *API) ListDebugLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	logs, err := a.admin.ListDebugLogs(r.Context(), limit)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "debug logs", logs)
}

func (a *API) ClearDebugLogs(w http.ResponseWriter, r *http.Request) {
	n, err := a.admin.ClearDebugLogs(r.Context(), Actor(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, "debug logs cleared", map[string]int{"deleted": n})
}
