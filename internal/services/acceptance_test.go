package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

func acceptedAnswerOf(t *testing.T, f *fixture, questionID int) *int {
	t.Helper()
	var q models.Question
	require.NoError(t, f.db.First(&q, questionID).Error)
	return q.AcceptedAnswerID
}

func TestAcceptAnswer_OwnerAcceptsAndAuthorIsNotified(t *testing.T) {
	f := newFixture(t)
	asker, answerer := f.user(t, "asker"), f.user(t, "answerer")
	q := f.question(t, asker, "How do goroutines leak?")
	a := f.answer(t, answerer, q.ID, "Blocked forever on a channel.")

	id, err := f.svc.Acceptance.AcceptAnswer(ctx, asker, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	accepted := acceptedAnswerOf(t, f, q.ID)
	require.NotNil(t, accepted)
	assert.Equal(t, a.ID, *accepted)

	notes := f.notificationsFor(t, answerer.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationAccepted, notes[0].Kind)
	assert.Equal(t, `asker accepted your answer to "How do goroutines leak?"`, notes[0].Message)
	require.NotNil(t, notes[0].ReferenceID)
	assert.Equal(t, a.ID, *notes[0].ReferenceID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AcceptancesTotal))
}

func TestAcceptAnswer_AlreadyAcceptedLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	asker, answerer := f.user(t, "asker"), f.user(t, "answerer")
	q := f.question(t, asker, "What is a nil interface?")
	a := f.answer(t, answerer, q.ID, "A type and value pair, both nil.")

	_, err := f.svc.Acceptance.AcceptAnswer(ctx, asker, a.ID)
	require.NoError(t, err)
	before := f.notificationsFor(t, answerer.ID)

	_, err = f.svc.Acceptance.AcceptAnswer(ctx, asker, a.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyAccepted)

	accepted := acceptedAnswerOf(t, f, q.ID)
	require.NotNil(t, accepted)
	assert.Equal(t, a.ID, *accepted)
	assert.Len(t, f.notificationsFor(t, answerer.ID), len(before))
}

func TestAcceptAnswer_SwitchesToAnotherAnswer(t *testing.T) {
	f := newFixture(t)
	asker, first, second := f.user(t, "asker"), f.user(t, "first"), f.user(t, "second")
	q := f.question(t, asker, "When should I use sync.Pool?")
	a1 := f.answer(t, first, q.ID, "For short lived allocations.")
	a2 := f.answer(t, second, q.ID, "When profiling shows GC pressure.")

	_, err := f.svc.Acceptance.AcceptAnswer(ctx, asker, a1.ID)
	require.NoError(t, err)
	_, err = f.svc.Acceptance.AcceptAnswer(ctx, asker, a2.ID)
	require.NoError(t, err)

	accepted := acceptedAnswerOf(t, f, q.ID)
	require.NotNil(t, accepted)
	assert.Equal(t, a2.ID, *accepted)
	assert.Len(t, f.notificationsFor(t, second.ID), 1)
	assert.Len(t, f.notificationsFor(t, first.ID), 1, "displaced author keeps only the original acceptance notice")
}

func TestAcceptAnswer_Rejections(t *testing.T) {
	f := newFixture(t)
	asker, answerer, stranger := f.user(t, "asker"), f.user(t, "answerer"), f.user(t, "stranger")
	admin := f.admin(t, "admin")
	q := f.question(t, asker, "Why does my test hang?")
	a := f.answer(t, answerer, q.ID, "A missing wg.Done.")

	tests := []struct {
		name     string
		actor    *models.User
		answerID int
		want     error
	}{
		{"anonymous", nil, a.ID, apperr.ErrUnauthorized},
		{"missing answer", asker, 4242, apperr.ErrNotFound},
		{"answer author", answerer, a.ID, apperr.ErrForbidden},
		{"stranger", stranger, a.ID, apperr.ErrForbidden},
		{"admin is not the owner", admin, a.ID, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Acceptance.AcceptAnswer(ctx, tt.actor, tt.answerID)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Nil(t, acceptedAnswerOf(t, f, q.ID))
}

func TestAcceptAnswer_BannedOwnerIsForbidden(t *testing.T) {
	f := newFixture(t)
	asker, answerer := f.user(t, "asker"), f.user(t, "answerer")
	q := f.question(t, asker, "Can a banned user accept?")
	a := f.answer(t, answerer, q.ID, "No.")
	require.NoError(t, f.db.Model(asker).Update("banned", true).Error)
	asker.Banned = true

	_, err := f.svc.Acceptance.AcceptAnswer(ctx, asker, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Nil(t, acceptedAnswerOf(t, f, q.ID))
}

func TestAcceptAnswer_SelfAnswerIsNotNotified(t *testing.T) {
	f := newFixture(t)
	asker := f.user(t, "asker")
	q := f.question(t, asker, "Answering my own question")
	a := f.answer(t, asker, q.ID, "Figured it out myself.")

	_, err := f.svc.Acceptance.AcceptAnswer(ctx, asker, a.ID)
	require.NoError(t, err)
	assert.Empty(t, f.notificationsFor(t, asker.ID))
}
