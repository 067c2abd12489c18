package models

// Status of an authorization record. The only transition is
// requested -> validated; records are never deleted.
type Status string

const (
	StatusRequested Status = "requested"
	StatusValidated Status = "validated"
)

// Record is one authorization entry, keyed by its token. While requested,
// Pattern is the address asking for permission; once validated, Pattern is
// the only sender allowed to relay with this token.
type Record struct {
	Token   string `db:"token" json:"token"`
	Pattern string `db:"pattern" json:"pattern"`
	Status  Status `db:"status" json:"status"`
}
