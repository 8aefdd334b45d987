package model

import "time"

// Token roles.  STAFF tokens belong to gate staff accounts; CUSTOMER
// tokens are issued per booking session and never map to a users row.
const (
	RoleStaff    = "STAFF"
	RoleCustomer = "CUSTOMER"
)

// User is a staff account.  Its email is also the identity the booking
// service checks before a scanner is opened.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string // bcrypt
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

