package guard_test

import (
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/bearer/internal/testutil"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"git.sr.ht/~jakintosh/bearer/pkg/guard"
	"github.com/gorilla/mux"
)

func guardedRouter() *mux.Router {
	g := guard.New(guard.Options{})

	r := mux.NewRouter()
	r.Use(g.Middleware(credentials.DefaultCookieOptions()))
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(name))
		}
	}
	r.HandleFunc("/", page("home")).Methods(http.MethodGet)
	r.HandleFunc("/manager/reservations", page("reservations")).Methods(http.MethodGet, http.MethodPost)
	return r
}

func TestMiddleware_PublicPath(t *testing.T) {
	t.Parallel()

	result := testutil.Get(guardedRouter(), "/", nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if string(result.Body) != "home" {
		t.Errorf("expected home page, got %q", result.Body)
	}
}

func TestMiddleware_ProtectedWithoutCookie(t *testing.T) {
	t.Parallel()

	result := testutil.Get(guardedRouter(), "/manager/reservations", nil)
	if location := testutil.ExpectRedirect(t, result); location != "/" {
		t.Errorf("expected redirect to /, got %q", location)
	}

	result = testutil.PostJSON(guardedRouter(), "/manager/reservations", `{}`, nil)
	if location := testutil.ExpectRedirect(t, result); location != "/" {
		t.Errorf("expected redirect to /, got %q", location)
	}
}

func TestMiddleware_ProtectedWithCookie(t *testing.T) {
	t.Parallel()

	cookie := &http.Cookie{Name: credentials.AccessTokenKey, Value: "A1"}
	result := testutil.Get(guardedRouter(), "/manager/reservations", nil, testutil.Cookies(cookie))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if string(result.Body) != "reservations" {
		t.Errorf("expected reservations page, got %q", result.Body)
	}
}

func TestMiddleware_RefreshCookieAloneRedirects(t *testing.T) {
	t.Parallel()

	cookie := &http.Cookie{Name: credentials.RefreshTokenKey, Value: "R1"}
	result := testutil.Get(guardedRouter(), "/manager/reservations", nil, testutil.Cookies(cookie))
	testutil.ExpectRedirect(t, result)
	if cookies := testutil.SetCookies(result); len(cookies) != 0 {
		t.Errorf("guard must not write cookies, got %v", cookies)
	}
}
