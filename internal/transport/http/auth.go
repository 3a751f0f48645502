package http

import (
	"net/http"

	"trivia-orchestrator/internal/domain"
)

// Authenticator is the excluded auth collaborator: it yields a verified
// actor for a connecting client.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.Actor, error)
}

// QueryAuthenticator reads the actor from query parameters. It is a
// development stand-in for a real token verifier; swap it out behind the
// Authenticator interface.
type QueryAuthenticator struct{}

func (QueryAuthenticator) Authenticate(r *http.Request) (domain.Actor, error) {
	q := r.URL.Query()
	id := q.Get("participantId")
	name := q.Get("name")
	if id == "" || name == "" {
		return domain.Actor{}, domain.ErrAuthenticationRequired()
	}
	role := domain.Role(q.Get("role"))
	switch role {
	case domain.RoleModerator, domain.RoleContestant, domain.RoleAudience:
	default:
		role = domain.RoleAudience
	}
	return domain.Actor{ParticipantID: id, DisplayName: name, Role: role}, nil
}
