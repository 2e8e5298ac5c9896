package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cookbook/internal/models"
	"cookbook/internal/observability"
	"cookbook/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims of locally issued tokens.
const (
	LocalIssuer   = "cookbook-api"
	LocalAudience = "cookbook-client"
)

// Local keeps bcrypt credentials in a store table and signs HS256 tokens itself.
// It stands in for a managed user pool in development and tests.
type Local struct {
	creds  store.Table[models.Credential]
	secret []byte
	ttl    time.Duration
	cost   int
}

// NewLocal returns a Local provider signing with secret.
func NewLocal(creds store.Table[models.Credential], secret string) *Local {
	return &Local{
		creds:  creds,
		secret: []byte(secret),
		ttl:    24 * time.Hour,
		cost:   bcrypt.DefaultCost,
	}
}

func record(operation string, err error) {
	observability.IdentityOperations.WithLabelValues("local", operation, observability.Result(err)).Inc()
}

func (l *Local) SignUp(ctx context.Context, email, password string) (err error) {
	defer func() { record("SignUp", err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return fmt.Errorf("%w: password too long", ErrWeakPassword)
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = l.creds.Create(ctx, &models.Credential{
		Email:        models.NormalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    models.NowMillis(),
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return ErrUserExists
	}
	return err
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (token string, err error) {
	defer func() { record("Authenticate", err) }()

	cred, err := l.creds.Get(ctx, models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return l.issue(cred.Email)
}

func (l *Local) DeleteUser(ctx context.Context, email string) (err error) {
	defer func() { record("DeleteUser", err) }()

	err = l.creds.Delete(ctx, models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (l *Local) issue(email string) (string, error) {
	if len(l.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   models.DerivedIdentity(email),
		"email": email,
		"iss":   LocalIssuer,
		"aud":   LocalAudience,
		"exp":   now.Add(l.ttl).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(l.secret)
}

// Verifier returns the verifier for tokens issued by l.
func (l *Local) Verifier() *JWTVerifier {
	return NewJWTVerifier(func(*jwt.Token) (any, error) {
		return l.secret, nil
	}, LocalIssuer, LocalAudience, jwt.SigningMethodHS256.Alg())
}
