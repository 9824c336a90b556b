package services

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

func seedAdminData(t *testing.T, f *fixture) (*models.User, *models.User) {
	t.Helper()
	admin := f.admin(t, "admin")
	asker, answerer := f.user(t, "asker"), f.user(t, "answerer")
	f.banned(t, "spammer")

	q1 := f.question(t, asker, "Pending question one")
	q2 := f.question(t, asker, "Approved question two")
	_, err := f.svc.Moderation.ApproveQuestion(ctx, admin, q2.ID)
	require.NoError(t, err)
	f.answer(t, answerer, q1.ID, "An answer.")
	f.answer(t, answerer, q2.ID, "Another answer.")
	return admin, asker
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	admin, asker := seedAdminData(t, f)

	stats, err := f.svc.Admin.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, models.AdminStats{
		TotalUsers:       4,
		TotalQuestions:   2,
		TotalAnswers:     2,
		PendingQuestions: 1,
		BannedUsers:      1,
	}, *stats)

	_, err = f.svc.Admin.Stats(ctx, asker)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAdminUsers_IncludeActivityCounts(t *testing.T) {
	f := newFixture(t)
	admin, _ := seedAdminData(t, f)

	users, err := f.svc.Admin.Users(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 4)

	byName := map[string]models.AdminUser{}
	for _, u := range users {
		byName[u.Username] = u
	}
	assert.EqualValues(t, 2, byName["asker"].QuestionCount)
	assert.EqualValues(t, 2, byName["answerer"].AnswerCount)
	assert.True(t, byName["spammer"].Banned)
	assert.Equal(t, models.RoleAdmin, byName["admin"].Role)
}

func TestAdminQuestions_FilterByStatus(t *testing.T) {
	f := newFixture(t)
	admin, _ := seedAdminData(t, f)

	all, err := f.svc.Admin.Questions(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.Admin.Questions(ctx, admin, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Pending question one", pending[0].Title)
	assert.EqualValues(t, 1, pending[0].AnswerCount)

	_, err = f.svc.Admin.Questions(ctx, admin, "ARCHIVED")
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestWriteReport(t *testing.T) {
	f := newFixture(t)
	admin, asker := seedAdminData(t, f)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Admin.WriteReport(ctx, admin, ReportQuestions, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "title", "author", "status", "answers", "accepted_answer_id", "created_at"}, rows[0])
	assert.Equal(t, "Approved question two", rows[1][1])
	assert.Equal(t, "APPROVED", rows[1][3])

	buf.Reset()
	require.NoError(t, f.svc.Admin.WriteReport(ctx, admin, ReportUsers, &buf))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, "username", rows[0][1])

	assert.ErrorIs(t, f.svc.Admin.WriteReport(ctx, admin, "payroll", &buf), apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.Admin.WriteReport(ctx, asker, ReportUsers, &buf), apperr.ErrForbidden)
}
