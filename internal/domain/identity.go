// Package domain contains entity without transport logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxIdentityIDLen = 64
	MaxNameLen       = 64
)

var (
	ErrIdentityIDEmpty = errors.New("identity id empty")
	ErrIdentityIDLong  = errors.New("identity id too long")
	ErrNameTooLong     = errors.New("name too long")
	ErrNameEmpty       = errors.New("name empty")
	ErrRoleInvalid     = errors.New("role invalid")
)

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ParseRole maps anything other than an exact "host" to guest.
func ParseRole(s string) Role {
	if Role(s) == RoleHost {
		return RoleHost
	}
	return RoleGuest
}

func (r Role) Valid() bool { return r == RoleHost || r == RoleGuest }

type IdentityID string

// Identity is issued once per login and stays immutable for the session.
// A client that reconnects presents the same ID again.
type Identity struct {
	ID   IdentityID `json:"id"`
	Name string     `json:"name"`
	Role Role       `json:"role"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(name string, role Role) (Identity, error) {
	id := Identity{
		ID:   IdentityID(uuid.NewString()),
		Name: strings.TrimSpace(name),
		Role: role,
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (i Identity) Validate() error {
	if i.ID == "" {
		return ErrIdentityIDEmpty
	}
	if len(i.ID) > MaxIdentityIDLen {
		return ErrIdentityIDLong
	}
	if len(i.Name) == 0 {
		return ErrNameEmpty
	}
	if len(i.Name) > MaxNameLen {
		return ErrNameTooLong
	}
	if !i.Role.Valid() {
		return ErrRoleInvalid
	}
	return nil
}

func (i Identity) IsHost() bool { return i.Role == RoleHost }
