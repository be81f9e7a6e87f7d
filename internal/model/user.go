// Package model defines the data structures used throughout the application.
package model

// Role is the closed set of account roles. Stored as text in the users
// table; anything outside these two values fails Valid() and is rejected
// before it reaches the database.
type Role string

const (
	RoleOrdinary Role = "ordinary"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleOrdinary || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a registered student account.
//
// ID is the stable internal handle, assigned by the database on insert and
// never reused. StudentID is the school-issued identifier and is unique, as
// is Username. Score is the spendable point balance (never negative);
// Lifetime is the cumulative total of positive point awards and only ever
// grows. Both are mutated exclusively through the ledger's adjust operation.
//
// PassHash holds the PHC-encoded argon2id hash and must never be serialized
// into a response, hence the json:"-" tag.
type User struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	PassHash  string `json:"-"`
	Lifetime  int64  `json:"lifetime"`
	Score     int64  `json:"score"`
	Role      Role   `json:"role"`
}

// UserPoints is the leaderboard projection of a user: identity plus point
// totals, nothing sensitive.
type UserPoints struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Lifetime int64  `json:"lifetime"`
	Score    int64  `json:"score"`
}
