package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

func TestAuthorize(t *testing.T) {
	user := &models.User{ID: 1, Role: models.RoleUser}
	banned := &models.User{ID: 2, Role: models.RoleUser, Banned: true}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}

	tests := []struct {
		name   string
		actor  *models.User
		action Action
		res    Resource
		want   error
	}{
		{"anonymous", nil, CastVote, Resource{OwnerID: 9}, apperr.ErrUnauthorized},
		{"zero id", &models.User{}, AskQuestion, Resource{}, apperr.ErrUnauthorized},
		{"vote on other answer", user, CastVote, Resource{OwnerID: 9}, nil},
		{"vote on own answer", user, CastVote, Resource{OwnerID: 1}, apperr.ErrInvalidOperation},
		{"banned vote", banned, CastVote, Resource{OwnerID: 9}, apperr.ErrForbidden},
		{"banned ask", banned, AskQuestion, Resource{}, apperr.ErrForbidden},
		{"banned answer", banned, PostAnswer, Resource{}, apperr.ErrForbidden},
		{"banned suggestion", banned, RequestSuggestion, Resource{}, apperr.ErrForbidden},
		{"banned reads notifications", banned, AckNotification, Resource{}, nil},
		{"owner accepts", user, AcceptAnswer, Resource{OwnerID: 1}, nil},
		{"stranger accepts", user, AcceptAnswer, Resource{OwnerID: 9}, apperr.ErrForbidden},
		{"admin cannot accept for others", admin, AcceptAnswer, Resource{OwnerID: 9}, apperr.ErrForbidden},
		{"banned owner accepts", banned, AcceptAnswer, Resource{OwnerID: 2}, apperr.ErrForbidden},
		{"user moderates", user, Moderate, Resource{}, apperr.ErrForbidden},
		{"admin moderates", admin, Moderate, Resource{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.res)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequireActor(t *testing.T) {
	assert.ErrorIs(t, RequireActor(nil), apperr.ErrUnauthorized)
	assert.ErrorIs(t, RequireActor(&models.User{}), apperr.ErrUnauthorized)
	assert.NoError(t, RequireActor(&models.User{ID: 4, Banned: true}))
}
