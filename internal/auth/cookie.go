// Package auth issues the session cookie and the signed token it carries.
package auth

import "fmt"

// CookieName is the session cookie read back by the authentication middleware.
const CookieName = "scriptorium_auth"

// BuildCookie returns the Set-Cookie value binding token to a session-lifetime,
// HttpOnly cookie scoped to the whole site. The token is not inspected.
func BuildCookie(token string) string {
	return fmt.Sprintf("%s=%s; HttpOnly; Path=/", CookieName, token)
}

// ExpiredCookie clears the session cookie on the client.
func ExpiredCookie() string {
	return fmt.Sprintf("%s=; HttpOnly; Path=/; Max-Age=0", CookieName)
}
