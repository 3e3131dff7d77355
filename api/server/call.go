package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"medledger/api/rpc"
)

// methodFunc executes one contract method.
type methodFunc func(params rpc.CallParams) (rpc.CallResponse, error)

// registerMethods binds the contract surface under the configured method
// names. Deployments disagree on naming (addRecord vs add_record and so on),
// which is exactly why the client resolves names through /api/v1/describe
// instead of hardcoding them.
func (s *Server) registerMethods() {
	s.methods[s.cfg.AppendMethodName] = s.methodAppend
	s.methods[s.cfg.ListMethodName] = s.methodList
}

func (s *Server) methodAppend(params rpc.CallParams) (rpc.CallResponse, error) {
	if params.PatientID == "" || params.ContentKey == "" {
		return rpc.CallResponse{Error: &rpc.CallError{
			Code:    "bad_params",
			Message: "patientId and contentKey are required",
		}}, nil
	}
	_, txID, err := s.ledger.Append(params.PatientID, params.ContentKey, params.Writer)
	if err != nil {
		return rpc.CallResponse{}, err
	}
	return rpc.CallResponse{TxID: txID.String()}, nil
}

func (s *Server) methodList(params rpc.CallParams) (rpc.CallResponse, error) {
	if params.PatientID == "" {
		return rpc.CallResponse{Error: &rpc.CallError{
			Code:    "bad_params",
			Message: "patientId is required",
		}}, nil
	}
	entries, err := s.ledger.List(params.PatientID)
	if err != nil {
		return rpc.CallResponse{}, err
	}
	// The contract surface mimics an EVM read on an unseeded key: it reverts
	// rather than answering empty. Clients normalize this to [].
	if len(entries) == 0 {
		return rpc.CallResponse{Error: &rpc.CallError{
			Code:    rpc.CodeReverted,
			Message: fmt.Sprintf("execution reverted: no records for patient %s", params.PatientID),
		}}, nil
	}
	return rpc.CallResponse{Entries: entries}, nil
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method", http.StatusMethodNotAllowed)
		return
	}

	var req rpc.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpc.CallResponse{Error: &rpc.CallError{
			Code: "bad_request", Message: "invalid JSON: " + err.Error(),
		}})
		return
	}

	method, ok := s.methods[req.Method]
	if !ok {
		writeJSON(w, http.StatusNotFound, rpc.CallResponse{Error: &rpc.CallError{
			Code: "unknown_method", Message: "no such method: " + req.Method,
		}})
		return
	}

	provisioned, err := s.ledger.IsProvisioned(s.cfg.ContractAddress)
	if err == nil && !provisioned {
		writeJSON(w, http.StatusConflict, rpc.CallResponse{Error: &rpc.CallError{
			Code: "no_contract", Message: "no contract at " + s.cfg.ContractAddress,
		}})
		return
	}

	// Appends mutate state and need a credential; reads stay open.
	if req.Method == s.cfg.AppendMethodName {
		s.requireAuth(func(w http.ResponseWriter, _ *http.Request) {
			s.dispatch(w, method, req.Params)
		})(w, r)
		return
	}
	s.dispatch(w, method, req.Params)
}

func (s *Server) dispatch(w http.ResponseWriter, method methodFunc, params rpc.CallParams) {
	resp, err := method(params)
	if err != nil {
		s.log.Error().Err(err).Msg("contract call failed")
		writeJSON(w, http.StatusInternalServerError, rpc.CallResponse{Error: &rpc.CallError{
			Code: "internal", Message: err.Error(),
		}})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "invalid method", http.StatusMethodNotAllowed)
		return
	}
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, rpc.DescribeResponse{
		Address: s.cfg.ContractAddress,
		Methods: names,
	})
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "invalid method", http.StatusMethodNotAllowed)
		return
	}
	provisioned, err := s.ledger.IsProvisioned(s.cfg.ContractAddress)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	info := rpc.ContractInfo{Address: s.cfg.ContractAddress, Provisioned: provisioned}
	if !provisioned {
		writeJSON(w, http.StatusNotFound, info)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleProvision deploys the contract at the configured address. Idempotent:
// re-provisioning an existing contract succeeds without touching state.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ledger.Provision(s.cfg.ContractAddress); err != nil {
		s.log.Error().Err(err).Msg("provision failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("address", s.cfg.ContractAddress).Msg("contract provisioned")
	writeJSON(w, http.StatusOK, rpc.ContractInfo{Address: s.cfg.ContractAddress, Provisioned: true})
}
