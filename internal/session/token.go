package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken covers bad segment counts, base64 and JSON.
	ErrMalformedToken = errors.New("malformed token")
	// ErrNoExpiry is returned for tokens without a usable exp claim.
	ErrNoExpiry = errors.New("token has no expiry")
)

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims decodes the payload segment of a JWT without verifying its
// signature. The header and any trailing segments are not inspected.
// Padded and unpadded base64url segments are both accepted.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %d segments", ErrMalformedToken, len(parts))
	}

	b, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return claims, nil
}

// Expiry returns the exp claim in seconds since epoch. A missing, zero or
// non-numeric exp yields ErrNoExpiry.
func Expiry(claims jwt.MapClaims) (int64, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Unix() == 0 {
		return 0, ErrNoExpiry
	}

	return exp.Unix(), nil
}
