package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aerolab/tunnelcore/internal/storage"
)

// Identity is the authenticated principal extracted from a verified token.
type Identity struct {
	UserID int64
	Email  string
}

// UserDirectory resolves token subjects to operator accounts.
// Satisfied by storage.UserRepository.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*storage.User, error)
}

// Verifier validates bearer tokens issued by the account service.
//
// The hub never creates tokens; it only checks the HS256 signature and
// expiry, then resolves the subject email to a user record.
type Verifier struct {
	secret string
	users  UserDirectory
}

// NewVerifier creates a Verifier with the shared signing secret.
func NewVerifier(secret string, users UserDirectory) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Verify parses and validates a token, returning the caller's identity.
//
// Returns ErrTokenExpired for expired tokens, ErrTokenInvalid for any other
// validation failure, and ErrUserNotFound when the subject has no account.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return []byte(v.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	user, err := v.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return Identity{}, ErrUserNotFound
		}
		return Identity{}, fmt.Errorf("resolving token subject: %w", err)
	}

	return Identity{UserID: user.ID, Email: user.Email}, nil
}
