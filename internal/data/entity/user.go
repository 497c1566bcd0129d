package entity

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleOwner UserRole = "owner"
	RoleAdmin UserRole = "admin"
)

type User struct {
	Base
	Name         string   `db:"name"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Phone        *string  `db:"phone"`
	Role         UserRole `db:"role"`
}

// CanManageSpots reports whether the role may create and edit parking spots
func (r UserRole) CanManageSpots() bool {
	return r == RoleOwner || r == RoleAdmin
}
