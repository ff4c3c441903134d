// Package client provides an HTTP client that authorizes calls to a remote API
// with a stored bearer credential.
//
// Every outgoing request carries `Authorization: Bearer <accessToken>` when an
// access token is stored. When the remote answers 401, the client exchanges
// the stored refresh token for new credentials and replays the request once.
// A request is never replayed twice, so a refreshed-but-still-rejected
// credential surfaces as the second 401 instead of looping.
//
// # Quick Start
//
//	store, _ := credentials.NewSQLiteStore("session.db", nil)
//
//	c, err := client.New(client.Options{
//	    BaseURL: "https://api.example.com",
//	    Store:   store,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// after login, keep the issued pair
//	c.SignIn(ctx, credentials.Pair{AccessToken: access, RefreshToken: refresh})
//
//	var orders []Order
//	err = c.GetJSON(ctx, "/orders", &orders)
//
// # Refresh
//
// The refresh exchange posts `{"refreshToken": "..."}` to the refresh endpoint
// (by default BaseURL + "/api/refresh") and expects
// `{"accessToken": "...", "refreshToken": "..."}` back. The refresh token in
// the response is optional; when present it replaces the stored one.
//
// If no refresh token is stored, or the exchange fails, both tokens are
// removed from the store and the call fails with an error wrapping
// ErrSessionExpired and the cause:
//
//	err := c.GetJSON(ctx, "/orders", &orders)
//	switch {
//	case errors.Is(err, client.ErrNoRefreshToken):
//	    // never logged in, or already logged out
//	case errors.Is(err, client.ErrRefreshRejected):
//	    // the authorization service refused the refresh token
//	case client.IsUnauthorized(err):
//	    // any other way the session ended; send the user to log in
//	}
//
// # Concurrent Calls
//
// With RefreshShared (the default) calls that hit an expired token at the same
// time share a single refresh exchange. RefreshIndependent lets each call
// refresh on its own; against a remote that rotates refresh tokens, all but
// one of those exchanges will be rejected and the session ends.
//
// # Using Another Client
//
// Transport returns the credentialed http.RoundTripper, so the same behavior
// can be plugged into any http.Client or SDK that accepts one.
package client
