/*
Package session keeps server-side session state for gin handlers.

A client is correlated with its session by an opaque identifier carried in a cookie.
The Middleware resolves the cookie to a Record in a Store before the handler runs, and
persists any changes before the response headers are sent. Handlers reach the session
with FromContext:

	sess := session.FromContext(c)
	var n uint64
	_, _ = sess.Get("counter", &n)
	err := sess.Insert("counter", n+1)

Any Store failure aborts the request with a 400 Bad Request.
*/
package session
