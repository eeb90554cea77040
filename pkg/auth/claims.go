package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

// AccessTokenPayload is what a caller supplies when minting.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.MemberRole
	JTI    string
}

func (p AccessTokenPayload) check() error {
	if p.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", p.Role)
	}
	return nil
}

// AccessTokenClaims is the verified body of an owner or staff token.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) payload() AccessTokenPayload {
	return AccessTokenPayload{UserID: c.UserID, Role: c.Role, JTI: c.ID}
}
