package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleBorrower         Role = "borrower"
	RoleEquipmentManager Role = "equipment_manager"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBorrower, RoleEquipmentManager:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role: %q", s)
}

type User struct {
	Model
	UpdatedAt  time.Time `db:"updated_at"`
	Email      string    `db:"email"`
	Password   string    `db:"password"`
	FirstName  string    `db:"first_name"`
	MiddleName *string   `db:"middle_name"`
	LastName   *string   `db:"last_name"`
	AvatarURL  *string   `db:"avatar_url"`
	Role       Role      `db:"role"`
}

// FullName joins the name parts, skipping empty ones.
func (u *User) FullName() string {
	name := u.FirstName
	if u.MiddleName != nil && *u.MiddleName != "" {
		name += " " + *u.MiddleName
	}
	if u.LastName != nil && *u.LastName != "" {
		name += " " + *u.LastName
	}
	return name
}
