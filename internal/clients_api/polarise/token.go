package polarise

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reports the exp claim when the opaque auth token happens to be a JWT.
// Nothing decides on it; it only goes into logs.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExplorerURL links a transaction hash on the explorer
func ExplorerURL(txHash string) string {
	if txHash == "" {
		return ""
	}
	return ExplorerTxURL + txHash
}
