package handlers

import (
	"net/http"

	"github.com/cogentx/cogentx/internal/services/sessions"
)

// resolveSession reads the session token from the request and resolves it
// to a live session, creating one when the token is absent, unknown, or
// expired. The effective session ID is always echoed on the response so
// clients learn about rotation.
func resolveSession(w http.ResponseWriter, r *http.Request, store *sessions.Store) *sessions.Session {
	sess, _ := store.GetOrCreate(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sess.ID)
	return sess
}
