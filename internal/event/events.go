package event

import "time"

// LoanCreatedEvent is emitted after a loan row is committed, for the external
// notification service to consume. This core never formats or delivers
// notifications itself.
type LoanCreatedEvent struct {
	LoanID    int64     `json:"loanId"`
	MemberID  int64     `json:"memberId"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type LoanStatusChangedEvent struct {
	LoanID    int64     `json:"loanId"`
	MemberID  int64     `json:"memberId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Timestamp time.Time `json:"timestamp"`
}
