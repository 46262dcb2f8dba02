package domain

import "github.com/shopspring/decimal"

// CorrectionKind is the kind of change the user asked for in free text.
type CorrectionKind string

const (
	CorrectionUpdateSplit    CorrectionKind = "UPDATE_SPLIT"
	CorrectionUpdateCategory CorrectionKind = "UPDATE_CATEGORY"
	CorrectionUpdateAmount   CorrectionKind = "UPDATE_AMOUNT"
	CorrectionDelete         CorrectionKind = "DELETE"
	CorrectionUnknown        CorrectionKind = "UNKNOWN"
)

// CorrectionData carries the new values for a correction action.
type CorrectionData struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Category string           `json:"category,omitempty"`
	SplitA   *decimal.Decimal `json:"splitA,omitempty"`
	SplitB   *decimal.Decimal `json:"splitB,omitempty"`
}

// CorrectionAction is one interpreted change.
type CorrectionAction struct {
	Kind          CorrectionKind `json:"kind"`
	TransactionID string         `json:"transactionId,omitempty"`
	Data          CorrectionData `json:"data"`
	StatusMessage string         `json:"statusMessage"`
}

// CorrectionPlan is the interpretation of a correction message.
type CorrectionPlan struct {
	Actions    []CorrectionAction `json:"actions"`
	Confidence float64            `json:"confidence"`
}

// UnknownCorrection is returned when the request could not be interpreted.
func UnknownCorrection(message string) CorrectionPlan {
	return CorrectionPlan{
		Actions:    []CorrectionAction{{Kind: CorrectionUnknown, StatusMessage: message}},
		Confidence: 0,
	}
}
