// Package rpc defines the wire shapes of the ledger node's call surface,
// shared by the server and the client.
package rpc

import "medledger/core/ledger"

// CodeReverted marks a call that reached the contract but reverted. The only
// revert the contract produces is the unseeded-patient read, which clients
// normalize to an empty list.
const CodeReverted = "reverted"

// CallRequest invokes a contract method by its registered name.
type CallRequest struct {
	Method string     `json:"method"`
	Params CallParams `json:"params"`
}

// CallParams carries the union of contract method arguments.
type CallParams struct {
	PatientID  string `json:"patientId,omitempty"`
	ContentKey string `json:"contentKey,omitempty"`
	Writer     string `json:"writer,omitempty"`
}

// CallError is the failure half of a call response.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CallResponse is the result envelope for /api/v1/call.
type CallResponse struct {
	TxID    string         `json:"txId,omitempty"`
	Entries []ledger.Entry `json:"entries,omitempty"`
	Error   *CallError     `json:"error,omitempty"`
}

// DescribeResponse lists the node's registered method names; clients probe
// this once at connect time to resolve logical operations.
type DescribeResponse struct {
	Address string   `json:"address"`
	Methods []string `json:"methods"`
}

// ContractInfo answers the contract-presence check.
type ContractInfo struct {
	Address     string `json:"address"`
	Provisioned bool   `json:"provisioned"`
}

// StatusResponse is the node's status summary.
type StatusResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Provisioned bool   `json:"provisioned"`
	Appends     int    `json:"appends"`
	Patients    int    `json:"patients"`
}
