package identity

import (
	"context"
	"fmt"

	"cookbook/internal/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	Email    string `json:"email"`
	TokenUse string `json:"token_use,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates signed identity tokens against a key source, issuer and audience.
type JWTVerifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	methods  []string
	tokenUse string
	stop     context.CancelFunc
}

// NewJWTVerifier returns a verifier accepting tokens signed with one of methods.
func NewJWTVerifier(kf jwt.Keyfunc, issuer, audience string, methods ...string) *JWTVerifier {
	return &JWTVerifier{keyfunc: kf, issuer: issuer, audience: audience, methods: methods}
}

// RequireTokenUse additionally checks the token_use claim (Cognito issues "id" and "access").
func (v *JWTVerifier) RequireTokenUse(use string) *JWTVerifier {
	v.tokenUse = use
	return v
}

// CognitoIssuer is the issuer of tokens minted by a user pool.
func CognitoIssuer(region, poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)
}

// CognitoJWKSURL is where a user pool publishes its signing keys.
func CognitoJWKSURL(issuer string) string {
	return issuer + "/.well-known/jwks.json"
}

// NewCognitoVerifier fetches the JWKS at jwksURL and keeps refreshing it in the background
// until Close is called. ctx only bounds the initial fetch. Only ID tokens for clientID are accepted.
func NewCognitoVerifier(ctx context.Context, jwksURL, issuer, clientID string) (*JWTVerifier, error) {
	refreshCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	type result struct {
		kf  keyfunc.Keyfunc
		err error
	}
	done := make(chan result, 1)
	go func() {
		kf, err := keyfunc.NewDefaultCtx(refreshCtx, []string{jwksURL})
		done <- result{kf, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		stop()
		return nil, fmt.Errorf("load cognito jwks: %w", ctx.Err())
	}
	if res.err != nil {
		stop()
		return nil, fmt.Errorf("load cognito jwks: %w", res.err)
	}

	v := NewJWTVerifier(res.kf.Keyfunc, issuer, clientID, jwt.SigningMethodRS256.Alg()).RequireTokenUse("id")
	v.stop = stop
	return v, nil
}

// Close stops the background key refresh, if any.
func (v *JWTVerifier) Close() {
	if v.stop != nil {
		v.stop()
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.tokenUse != "" && claims.TokenUse != v.tokenUse {
		return nil, fmt.Errorf("%w: token_use %q", ErrInvalidToken, claims.TokenUse)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	return &Principal{Email: models.NormalizeEmail(claims.Email), Subject: claims.Subject}, nil
}
