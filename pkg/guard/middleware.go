package guard

import (
	"net/http"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"github.com/gorilla/mux"
)

// Middleware guards server-rendered routes. The credential is read from the
// request's cookies, and requests the guard turns away are answered with
// 303 See Other to the redirect path.
func (g *Guard) Middleware(opts credentials.CookieOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := credentials.NewRequestStore(w, r, opts)
			decision := g.check(r.Context(), store, r.URL.Path)
			if !decision.Allowed() {
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
