package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/internal/billing"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// handleWebhook handles POST /api/v1/webhooks/{gateway}. The gateway
// extension verifies the payload signature; a rejected payload reads as
// 400 so the sender retries with a correct signature rather than
// treating us as down.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	res, err := s.billing.HandleWebhook(r.Context(), r.PathValue("gateway"), extension.WebhookRequest{
		Headers: r.Header,
		Body:    body,
	})
	if err != nil {
		if errors.Is(err, billing.ErrUnknownExtension) || extension.IsExternal(err) {
			s.fail(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "webhook rejected")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
