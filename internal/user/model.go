package user

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleClient  Role = "client"
	RoleLivreur Role = "livreur"
)

func ValidRole(r string) bool {
	switch Role(r) {
	case RoleAdmin, RoleClient, RoleLivreur:
		return true
	}
	return false
}

type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminUser is the back-office view of a profile joined with its role rows.
type AdminUser struct {
	Profile
	Roles []string `json:"roles"`
}

type UpdateProfileParams struct {
	UserID   string
	FullName string
	Phone    *string
}
