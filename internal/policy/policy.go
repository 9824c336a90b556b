// Package policy holds every role, ownership and ban rule in one place.
// Services call Authorize once per mutating operation, after loading the
// target resource and before touching any state.
package policy

import (
	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type Action string

const (
	AskQuestion       Action = "question:create"
	PostAnswer        Action = "answer:create"
	CastVote          Action = "answer:vote"
	AcceptAnswer      Action = "answer:accept"
	AckNotification   Action = "notification:ack"
	RequestSuggestion Action = "assistant:suggest"
	Moderate          Action = "admin:moderate"
)

// Resource describes the target of an action. OwnerID is the author of
// the answer for CastVote and of the question for AcceptAnswer.
type Resource struct {
	OwnerID int
}

var contentWrites = map[Action]bool{
	AskQuestion:       true,
	PostAnswer:        true,
	CastVote:          true,
	AcceptAnswer:      true,
	RequestSuggestion: true,
}

// RequireActor reports Unauthorized when there is no resolved caller. It
// lets services reject anonymous requests before loading anything.
func RequireActor(actor *models.User) error {
	if actor == nil || actor.ID == 0 {
		return apperr.Unauthorized("authentication required")
	}
	return nil
}

func Authorize(actor *models.User, action Action, res Resource) error {
	if err := RequireActor(actor); err != nil {
		return err
	}

	if action == Moderate {
		if !actor.IsAdmin() {
			return apperr.Forbidden("admin access required")
		}
		return nil
	}

	if contentWrites[action] && actor.Banned {
		return apperr.Forbidden("your account is banned")
	}

	switch action {
	case CastVote:
		if actor.ID == res.OwnerID {
			return apperr.InvalidOperation("cannot vote on your own answer")
		}
	case AcceptAnswer:
		if actor.ID != res.OwnerID {
			return apperr.Forbidden("only the question owner can accept answers")
		}
	}
	return nil
}
