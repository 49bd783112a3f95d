package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/keygate/internal/common"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the user id stashed by withAccessToken, or ""
// if the request never passed through it.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// withAccessToken guards a handler behind a Bearer access token. Missing,
// malformed, and invalid tokens all get the same 401 answer.
func (s *Server) withAccessToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.writeError(r, w, common.ErrUnauthorized)
			return
		}

		userID, err := s.tokens.VerifyAccessToken(token)
		if err != nil {
			s.writeError(r, w, common.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}
