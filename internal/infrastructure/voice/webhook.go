package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "ElevenLabs-Signature"

// SignatureTolerance bounds how old a signed callback may be.
const SignatureTolerance = 30 * time.Minute

// Webhook payload types.
const (
	EventPostCallTranscription = "post_call_transcription"
	EventCallInitiationFailure = "call_initiation_failure"
)

var (
	// ErrBadSignature is returned for missing, stale or forged signatures.
	ErrBadSignature = errors.New("invalid webhook signature")
	// ErrUnsupportedType marks callbacks this service does not act on.
	ErrUnsupportedType = errors.New("unsupported webhook type")
)

// VerifySignature checks "t=<unix>,v0=<hex hmac-sha256(secret, t.body)>".
func VerifySignature(header string, body []byte, secret string, now time.Time) error {
	var (
		ts     string
		hashes []string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v0":
			hashes = append(hashes, v)
		}
	}
	if ts == "" || len(hashes) == 0 {
		return fmt.Errorf("%w: malformed header", ErrBadSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
	}
	if age := now.Sub(time.Unix(unix, 0)); age > SignatureTolerance || age < -SignatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	expected := Sign(secret, ts, body)
	for _, h := range hashes {
		if hmac.Equal([]byte(h), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: digest mismatch", ErrBadSignature)
}

// Sign returns the hex digest for a timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type transcriptionData struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Metadata       struct {
		CallDurationSecs  int    `json:"call_duration_secs"`
		TerminationReason string `json:"termination_reason"`
	} `json:"metadata"`
	Analysis struct {
		CallSuccessful        string `json:"call_successful"`
		TranscriptSummary     string `json:"transcript_summary"`
		DataCollectionResults map[string]struct {
			Value any `json:"value"`
		} `json:"data_collection_results"`
	} `json:"analysis"`
}

type initiationFailureData struct {
	ConversationID string `json:"conversation_id"`
	FailureReason  string `json:"failure_reason"`
}

// ParseWebhook maps a callback body onto a call report.
func ParseWebhook(body []byte) (domain.CallReport, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.CallReport{}, fmt.Errorf("decode webhook: %w", domain.ErrInvalid)
	}

	switch env.Type {
	case EventPostCallTranscription:
		var data transcriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return domain.CallReport{}, fmt.Errorf("decode transcription: %w", domain.ErrInvalid)
		}
		status := domain.CallCompleted
		if isVoicemail(data) {
			status = domain.CallVoicemailLeft
		}
		return domain.CallReport{
			Type:           env.Type,
			ConversationID: data.ConversationID,
			Outcome: domain.CallOutcome{
				Status:          status,
				Summary:         data.Analysis.TranscriptSummary,
				DurationSeconds: data.Metadata.CallDurationSecs,
				Successful:      strings.EqualFold(data.Analysis.CallSuccessful, "success"),
			},
		}, nil

	case EventCallInitiationFailure:
		var data initiationFailureData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return domain.CallReport{}, fmt.Errorf("decode initiation failure: %w", domain.ErrInvalid)
		}
		status := domain.CallFailed
		switch strings.ToLower(data.FailureReason) {
		case "no-answer", "no_answer", "busy":
			status = domain.CallNoAnswer
		}
		reason := data.FailureReason
		if reason == "" {
			reason = "call initiation failed"
		}
		return domain.CallReport{
			Type:           env.Type,
			ConversationID: data.ConversationID,
			Outcome:        domain.CallOutcome{Status: status, ErrorMessage: reason},
		}, nil
	}

	return domain.CallReport{Type: env.Type}, fmt.Errorf("webhook type %q: %w", env.Type, ErrUnsupportedType)
}

func isVoicemail(data transcriptionData) bool {
	if strings.Contains(strings.ToLower(data.Metadata.TerminationReason), "voicemail") {
		return true
	}
	result, ok := data.Analysis.DataCollectionResults["voicemail_detected"]
	if !ok {
		return false
	}
	switch v := result.Value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return false
}
