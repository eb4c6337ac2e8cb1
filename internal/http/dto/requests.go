package dto

type CreateEscrowRequest struct {
	Payee string `json:"payee"`
	// Amount is in the ledger's smallest unit.
	Amount          int64  `json:"amount"`
	DeadlineSeconds int64  `json:"deadline_seconds"`
	Payload         []byte `json:"payload,omitempty"` // base64 in JSON
}

type SetBlockedRequest struct {
	Blocked *bool `json:"blocked"`
}
