package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/logger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

func newSQLite(t *testing.T) Service {
	t.Helper()
	svc, err := New(config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNew_SQLiteMigratesSchema(t *testing.T) {
	db := newSQLite(t).GetDB()

	for _, table := range []any{
		&models.User{}, &models.Tag{}, &models.Question{}, &models.QuestionTag{},
		&models.Answer{}, &models.Vote{}, &models.Notification{},
	} {
		assert.True(t, db.Migrator().HasTable(table), "%T", table)
	}
}

func TestHealth(t *testing.T) {
	stats := newSQLite(t).Health()

	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "1", stats["open_connections"])
}

func TestSchema_RejectsDuplicateVote(t *testing.T) {
	db := newSQLite(t).GetDB()

	asker := models.User{Subject: "s1", Username: "asker"}
	voter := models.User{Subject: "s2", Username: "voter"}
	require.NoError(t, db.Create(&asker).Error)
	require.NoError(t, db.Create(&voter).Error)
	q := models.Question{Title: "A question", Body: models.NewDocument("body"), AuthorID: asker.ID}
	require.NoError(t, db.Create(&q).Error)
	a := models.Answer{QuestionID: q.ID, AuthorID: asker.ID, Body: models.NewDocument("answer")}
	require.NoError(t, db.Create(&a).Error)

	require.NoError(t, db.Create(&models.Vote{UserID: voter.ID, AnswerID: a.ID, VoteType: models.Upvote}).Error)
	err := db.Create(&models.Vote{UserID: voter.ID, AnswerID: a.ID, VoteType: models.Downvote}).Error

	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSchema_RejectsDuplicateTagName(t *testing.T) {
	db := newSQLite(t).GetDB()

	require.NoError(t, db.Create(&models.Tag{Name: "go"}).Error)
	assert.ErrorIs(t, db.Create(&models.Tag{Name: "go"}).Error, gorm.ErrDuplicatedKey)
}

func TestSchema_DefaultsAndDocumentRoundTrip(t *testing.T) {
	db := newSQLite(t).GetDB()

	u := models.User{Subject: "s1", Username: "asker"}
	require.NoError(t, db.Create(&u).Error)
	q := models.Question{Title: "A question", Body: models.NewDocument("first\n\nsecond"), AuthorID: u.ID}
	require.NoError(t, db.Create(&q).Error)

	var gotUser models.User
	require.NoError(t, db.First(&gotUser, u.ID).Error)
	assert.Equal(t, models.RoleUser, gotUser.Role)
	assert.False(t, gotUser.Banned)

	var got models.Question
	require.NoError(t, db.First(&got, q.ID).Error)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.AcceptedAnswerID)
	assert.Equal(t, "first\nsecond", got.Body.PlainText())
}

func TestSeed_Idempotent(t *testing.T) {
	db := newSQLite(t).GetDB()

	first, err := Seed(db)
	require.NoError(t, err)
	second, err := Seed(db)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "demo", second.Username)

	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.EqualValues(t, len(DefaultTags), tags)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
}
