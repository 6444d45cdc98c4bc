package serializer

import "github.com/akarpov/examtrainer/internal/model"

// Session serializes the render of a session. The access token is only
// included when the session was just established.
func Session(m *model.Session, withToken bool) map[string]interface{} {
	r := map[string]interface{}{
		"uuid":       m.ID,
		"created_at": m.CreatedAt,
		"expire_at":  m.ExpireAt,
		"permanent":  m.Permanent,
		"user_agent": m.UserAgent,
	}
	if withToken {
		r["access_token"] = m.AccessToken
	}
	return r
}
