package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/server/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

type tokenVerifier struct {
	secretKey []byte
}

// requireToken rejects requests without a valid bearer token and stores the
// verified claims in the request context for the handler.
func (srv *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, common.ErrInvalidToken)
			return
		}

		claims, err := auth.ParseToken(tokenString, srv.tokens.secretKey)
		if err != nil {
			writeError(w, common.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}
