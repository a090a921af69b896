package api

import "strings"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TransactionView describes a queued or processed transaction.
type TransactionView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	QueuePosition int    `json:"queuePosition,omitempty"`
	Requester     string `json:"requester"`
	EnqueuedAt    string `json:"enqueuedAt,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Error         string `json:"error,omitempty"`
	ConfirmedAt   string `json:"confirmedAt,omitempty"`
	FailedAt      string `json:"failedAt,omitempty"`
}

// RunSummary describes the most recent scheduler run.
type RunSummary struct {
	StartedAt   string `json:"startedAt,omitempty"`
	FinishedAt  string `json:"finishedAt,omitempty"`
	Processed   int    `json:"processed"`
	Confirmed   int    `json:"confirmed"`
	Failed      int    `json:"failed"`
	Activated   bool   `json:"activated"`
	Reverted    bool   `json:"reverted"`
	Interrupted bool   `json:"interrupted,omitempty"`
	Error       string `json:"error,omitempty"`
	RevertError string `json:"revertError,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string      `json:"status"`
	ProgramState     string      `json:"programState"`
	QueueLength      int         `json:"queueLength"`
	ProcessedCount   int         `json:"processedCount"`
	IsProcessing     bool        `json:"isProcessing"`
	IsDeploying      bool        `json:"isDeploying"`
	CosignerAddress  string      `json:"cosignerAddress"`
	UpgradeAuthority string      `json:"upgradeAuthority,omitempty"`
	ProgramID        string      `json:"programId,omitempty"`
	LastError        string      `json:"lastError,omitempty"`
	LastRun          *RunSummary `json:"lastRun,omitempty"`
}

// StateResponse is returned by GET /state.
type StateResponse struct {
	State        string `json:"state"`
	QueueLength  int    `json:"queueLength"`
	IsProcessing bool   `json:"isProcessing"`
	IsDeploying  bool   `json:"isDeploying"`
}

// SubmitRequest is the body of POST /submit-transaction.
type SubmitRequest struct {
	Payload   string `json:"payload,omitempty"`
	Requester string `json:"requester,omitempty"`
	// Legacy field names.
	SerializedTx  string `json:"serializedTx,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// Normalized returns the payload and requester, preferring current field
// names over legacy ones.
func (r SubmitRequest) Normalized() (payload, requester string) {
	payload = firstNonEmpty(r.Payload, r.SerializedTx)
	requester = firstNonEmpty(r.Requester, r.WalletAddress)
	return payload, requester
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Success       bool   `json:"success"`
	ID            string `json:"id"`
	QueuePosition int    `json:"queuePosition"`
	Message       string `json:"message"`
	// TransactionID repeats ID under the legacy field name.
	TransactionID string `json:"transactionId"`
}

// QueueResponse is returned by GET /queue.
type QueueResponse struct {
	Length       int               `json:"length"`
	IsProcessing bool              `json:"isProcessing"`
	IsDeploying  bool              `json:"isDeploying"`
	ProgramState string            `json:"programState"`
	Items        []TransactionView `json:"items"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Count int               `json:"count"`
	Items []TransactionView `json:"items"`
}

// ProcessResponse is returned by POST /process-queue.
type ProcessResponse struct {
	Message string      `json:"message"`
	Result  string      `json:"result"`
	Run     *RunSummary `json:"run,omitempty"`
}

// ChangeStateRequest is the body of POST /change-state.
type ChangeStateRequest struct {
	Target string `json:"target,omitempty"`
	// Legacy field name.
	State string `json:"state,omitempty"`
}

// Normalized returns the requested target variant name.
func (r ChangeStateRequest) Normalized() string {
	return strings.ToLower(firstNonEmpty(r.Target, r.State))
}

// ChangeStateResponse reports the result of a manual transition.
type ChangeStateResponse struct {
	Success  bool   `json:"success"`
	NewState string `json:"newState"`
	Message  string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
