package middleware

import (
	"net/http"

	"github.com/arcana-app/credits-server-go/internal/audit"
	"github.com/arcana-app/credits-server-go/internal/util"
)

// AdminAuthMiddleware guards the privileged ledger operations. The bearer
// token is checked against a bcrypt hash; with no hash configured the whole
// admin surface stays closed.
type AdminAuthMiddleware struct {
	adminTokenHash string
}

func NewAdminAuthMiddleware(adminTokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{adminTokenHash: adminTokenHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.adminTokenHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Admin operations are disabled",
			})
			return
		}

		token := extractToken(r)
		if token == "" || !util.CheckTokenHash(token, m.adminTokenHash) {
			audit.Log(r.Context(), audit.FromRequest(r, audit.Event{Type: audit.EventAdminAuthFail}))
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid admin token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
