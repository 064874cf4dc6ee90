package endpoints

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/server"
	"github.com/saltinventory/minion-inventory/pkg/server/middleware"
)

// AuditRequest is the body of POST /audit, as sent by the inventory returner
type AuditRequest struct {
	Timestamp  string               `json:"timestamp"`
	Properties inventory.Properties `json:"properties"`
	Changed    bool                 `json:"changed"`
}

// PresenceRequest is the body of POST /present, as sent by the presence reactor
type PresenceRequest struct {
	Timestamp string   `json:"timestamp"`
	Minions   []string `json:"minions"`
}

type auditResponse struct {
	inventory.AuditReport
	Error string `json:"error,omitempty"`
}

type presenceResponse struct {
	inventory.PresenceReport
	Error string `json:"error,omitempty"`
}

// RegisterInventoryEndpoints registers the audit and presence endpoints
func RegisterInventoryEndpoints(s *server.Server) {
	s.Router.Handle("/audit", s.Protect(handleAudit(s.Auditor, s.Logger))).Methods("POST")
	s.Router.Handle("/present", s.Protect(handlePresent(s.Presence, s.Logger))).Methods("POST")
}

func handleAudit(auditor server.Auditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuditRequest
		if err := decodeBody(w, r, &req); err != nil {
			logger.Warn("rejected audit body", zap.String("requestID", middleware.RequestIDFromContext(r.Context())), zap.Error(err))
			respondMalformed(w, err)
			return
		}

		report := auditor.Audit(r.Context(), req.Timestamp, req.Properties, req.Changed)
		respondWithJSON(w, statusFor(report.Outcome), auditResponse{
			AuditReport: report,
			Error:       report.Message(),
		})
	}
}

func handlePresent(presence server.PresenceRecorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PresenceRequest
		if err := decodeBody(w, r, &req); err != nil {
			logger.Warn("rejected presence body", zap.String("requestID", middleware.RequestIDFromContext(r.Context())), zap.Error(err))
			respondMalformed(w, err)
			return
		}

		report := presence.Present(r.Context(), req.Timestamp, req.Minions)
		respondWithJSON(w, statusFor(report.Outcome), presenceResponse{
			PresenceReport: report,
			Error:          report.Message(),
		})
	}
}
