package domain

import "time"

// SmtpConfig is one outbound mail credential set belonging to a user.
// LastUsed drives least-recently-used rotation across stateless batch
// invocations, so it lives in the store, never in process memory.
type SmtpConfig struct {
	ID        string
	UserID    string
	Host      string
	Port      int
	Secure    bool
	Username  string
	Password  string
	FromEmail string
	FromName  string
	LastUsed  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
