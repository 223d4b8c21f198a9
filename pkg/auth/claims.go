package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// Claims is the back-office token body. The subject holds the user id.
type Claims struct {
	Role enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks in jwt.Parser.
func (c Claims) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return fmt.Errorf("subject is not a user id: %w", err)
	}
	return nil
}

// Actor is the authenticated caller behind an admin request.
type Actor struct {
	UserID  uuid.UUID
	Role    enums.AdminRole
	TokenID string
}

// Can reports whether the actor holds any of roles.
func (a Actor) Can(roles ...enums.AdminRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
