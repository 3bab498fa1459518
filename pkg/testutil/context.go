package testutil

import (
	"net/http"
	"time"

	id "sessionsale/pkg/domain"
	"sessionsale/pkg/requestcontext"
)

// AsAdmin returns req as the auth and request-time middleware would hand it
// to a handler: adminID is the actor and now is the request time.
func AsAdmin(req *http.Request, adminID id.ActorID, now time.Time) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), adminID)
	ctx = requestcontext.WithTime(ctx, now)
	return req.WithContext(ctx)
}
