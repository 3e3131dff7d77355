package server

import (
	"net/http"
	"time"

	"medledger/api/rpc"
)

// Version is the node release tag.
const Version = "0.3.0"

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadiness verifies the storage-backed ledger answers before the node
// advertises itself ready.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.IsProvisioned(s.cfg.ContractAddress); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provisioned, _ := s.ledger.IsProvisioned(s.cfg.ContractAddress)
	stats := s.ledger.Stats()
	writeJSON(w, http.StatusOK, rpc.StatusResponse{
		Name:        "medledgerd",
		Version:     Version,
		Status:      "ok",
		Provisioned: provisioned,
		Appends:     stats.Appends,
		Patients:    stats.Patients,
	})
}

func (s *Server) uptime() time.Duration {
	return time.Since(s.started)
}
