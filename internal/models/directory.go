package models

// Contact identifies a mentor or student for display and email
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Subject is something a mentor teaches
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role of an authenticated caller
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
)

// Identity is the authenticated caller, taken from a validated token
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}
