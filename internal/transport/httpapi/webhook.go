package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/voice"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

// ElevenLabsWebhook receives post-call callbacks. It is not behind JWT;
// the HMAC signature authenticates it when a secret is configured.
func (a *API) ElevenLabsWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10*maxBodyBytes))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if a.webhookSecret != "" {
		if err := voice.VerifySignature(r.Header.Get(voice.SignatureHeader), body, a.webhookSecret, a.now()); err != nil {
			a.logger.Warn("webhook signature rejected", "error", err)
			respondMessage(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	report, err := voice.ParseWebhook(body)
	if errors.Is(err, voice.ErrUnsupportedType) {
		respondOK(w, usecase.ReportIgnored, nil)
		return
	}
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	status, err := a.reports.Handle(r.Context(), report)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOK(w, status, map[string]string{"conversation_id": report.ConversationID, "status": status})
}
