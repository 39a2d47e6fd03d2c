package security

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wikihost/engine/senderror"
)

// BearerJWT returns a check validating a "Bearer <token>" Authorization
// header against secret using alg, grounded on bolt/middleware/jwt's
// parse-then-store-claims shape (SPEC_FULL.md §4.12). On success it
// stores the parsed claims on the RequestState's user slot; on any
// failure it raises UNAUTHORIZED (401).
func BearerJWT(secret []byte, alg string) Check {
	if alg == "" {
		alg = "HS256"
	}
	return func(t Target) error {
		header := t.Header("authorization")
		if header == "" {
			return senderror.New(senderror.ReasonUnauthorized, 401).WithDetails("missing Authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return senderror.New(senderror.ReasonUnauthorized, 401).WithDetails("expected a Bearer token")
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if token.Method.Alg() != alg {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return senderror.New(senderror.ReasonUnauthorized, 401).WithDetails("invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return senderror.New(senderror.ReasonUnauthorized, 401).WithDetails("unreadable token claims")
		}

		t.SetUser(claims)
		return nil
	}
}
