package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "escolinha/pkg/domain-errors"
)

const audience = "rematricula"

// ErrInvalidLink is returned for every token that cannot be honoured. Bad
// signatures, expired links and unknown records all look the same to the
// caller.
var ErrInvalidLink = dErrors.New(dErrors.CodeNotFound, "link inválido")

// Claims binds a re-enrollment record and its year. The record id is the
// only thing a token grants; state is always read from the store.
type Claims struct {
	RematriculaID string `json:"rid"`
	Ano           int    `json:"ano"`
	jwt.RegisteredClaims
}

// JWTService signs and validates re-enrollment links.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// WithClock replaces the validation clock; tests use it to check expiry.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// GenerateLinkToken issues a token for record id in year ano, valid for
// expiresIn from now.
func (s *JWTService) GenerateLinkToken(rematriculaID string, ano int, now time.Time, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RematriculaID: rematriculaID,
		Ano:           ano,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign link token")
	}
	return signedToken, nil
}

// ValidateToken verifies signature, issuer, audience and expiry. Any failure
// is ErrInvalidLink.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "link inválido")
		}
		return nil, ErrInvalidLink
	}
	if !parsed.Valid {
		return nil, ErrInvalidLink
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.RematriculaID == "" || claims.Ano == 0 {
		return nil, ErrInvalidLink
	}
	return claims, nil
}
