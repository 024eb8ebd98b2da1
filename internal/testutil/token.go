package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
)

// AccessToken signs a token shaped like the account service's, valid for a quarter hour.
func AccessToken(tb testing.TB, userID uint, role, secret string) string {
	tb.Helper()
	return signToken(tb, userID, role, secret, time.Now().Add(15*time.Minute))
}

// ExpiredAccessToken signs a token that expired a minute ago.
func ExpiredAccessToken(tb testing.TB, userID uint, role, secret string) string {
	tb.Helper()
	return signToken(tb, userID, role, secret, time.Now().Add(-time.Minute))
}

func signToken(tb testing.TB, userID uint, role, secret string, expiresAt time.Time) string {
	tb.Helper()
	claims := &utils.Claims{
		UserID: userID,
		Email:  "user@widget.sk",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-15 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return signed
}
