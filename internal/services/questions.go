package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

const (
	defaultQuestionLimit = 10
	maxQuestionLimit     = 50
	maxQuestionTags      = 5
	maxTagLength         = 50
	minTitleLength       = 5
	maxTitleLength       = 300
)

type QuestionService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewQuestionService(db *gorm.DB, log *logrus.Logger) *QuestionService {
	return &QuestionService{db: db, log: log}
}

func (s *QuestionService) Create(ctx context.Context, actor *models.User, req models.CreateQuestionRequest) (*models.QuestionResponse, error) {
	if err := policy.Authorize(actor, policy.AskQuestion, policy.Resource{}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if n := utf8.RuneCountInString(title); n < minTitleLength || n > maxTitleLength {
		return nil, apperr.InvalidOperation(fmt.Sprintf("title must be between %d and %d characters", minTitleLength, maxTitleLength))
	}
	if err := req.Body.Validate(); err != nil {
		return nil, apperr.InvalidOperation(err.Error())
	}
	tagNames, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	question := models.Question{
		Title:    title,
		Body:     req.Body,
		BodyText: req.Body.PlainText(),
		AuthorID: actor.ID,
		Status:   models.StatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&question).Error; err != nil {
			return err
		}
		for _, name := range tagNames {
			tag, err := findOrCreateTag(tx, name)
			if err != nil {
				return err
			}
			link := models.QuestionTag{QuestionID: question.ID, TagID: tag.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("failed to create question", err)
	}

	s.log.WithFields(logrus.Fields{"question_id": question.ID, "author_id": actor.ID}).Info("Question created")
	return s.load(ctx, question.ID)
}

// normalizeTags trims names and drops case-insensitive duplicates, keeping
// the first spelling.
func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	var names []string
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		if utf8.RuneCountInString(name) > maxTagLength {
			return nil, apperr.InvalidOperation(fmt.Sprintf("tag %q is longer than %d characters", name, maxTagLength))
		}
		seen[key] = true
		names = append(names, name)
	}
	if len(names) > maxQuestionTags {
		return nil, apperr.InvalidOperation(fmt.Sprintf("a question can have at most %d tags", maxQuestionTags))
	}
	return names, nil
}

// findOrCreateTag matches names case-insensitively. A concurrent insert of
// the same spelling is absorbed by ON CONFLICT and re-read.
func findOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	var tag models.Tag
	err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).Limit(1).Find(&tag).Error
	if err != nil {
		return nil, err
	}
	if tag.ID != 0 {
		return &tag, nil
	}

	tag = models.Tag{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
		return nil, err
	}
	if tag.ID == 0 {
		if err := tx.Where("name = ?", name).Take(&tag).Error; err != nil {
			return nil, err
		}
	}
	return &tag, nil
}

func (s *QuestionService) List(ctx context.Context, params models.QuestionListParams) (*models.QuestionPage, error) {
	db := s.db.WithContext(ctx)
	search := strings.TrimSpace(params.Search)
	tag := strings.TrimSpace(params.Tag)

	filtered := func() *gorm.DB {
		q := db.Model(&models.Question{}).Where("questions.status <> ?", models.StatusRejected)
		if search != "" {
			term := "%" + escapeLike(strings.ToLower(search)) + "%"
			authors := db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE ? ESCAPE '\\'", term)
			tagged := db.Table("question_tags").
				Select("question_tags.question_id").
				Joins("JOIN tags ON tags.id = question_tags.tag_id").
				Where("LOWER(tags.name) LIKE ? ESCAPE '\\'", term)
			q = q.Where(
				"LOWER(questions.title) LIKE ? ESCAPE '\\' OR LOWER(questions.body_text) LIKE ? ESCAPE '\\' OR questions.author_id IN (?) OR questions.id IN (?)",
				term, term, authors, tagged,
			)
		}
		if tag != "" {
			withTag := db.Table("question_tags").
				Select("question_tags.question_id").
				Joins("JOIN tags ON tags.id = question_tags.tag_id").
				Where("LOWER(tags.name) = ?", strings.ToLower(tag))
			q = q.Where("questions.id IN (?)", withTag)
		}
		return q
	}

	page := &models.QuestionPage{Questions: []models.QuestionResponse{}, Search: search}
	if err := filtered().Count(&page.Total).Error; err != nil {
		return nil, apperr.Internal("failed to count questions", err)
	}

	var questions []models.Question
	err := filtered().
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.name") }).
		Order("questions.created_at desc, questions.id desc").
		Limit(clampLimit(params.Limit)).
		Find(&questions).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch questions", err)
	}

	counts, err := answerCounts(db, questionIDs(questions))
	if err != nil {
		return nil, apperr.Internal("failed to count answers", err)
	}
	for _, q := range questions {
		page.Questions = append(page.Questions, toQuestionResponse(q, counts[q.ID]))
	}
	return page, nil
}

// Get hides rejected questions from everyone but admins.
func (s *QuestionService) Get(ctx context.Context, id int, viewer *models.User) (*models.QuestionResponse, error) {
	resp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Status == models.StatusRejected && (viewer == nil || !viewer.IsAdmin()) {
		return nil, apperr.NotFound("question not found")
	}
	return resp, nil
}

// Tags lists every tag alphabetically with the number of questions using it.
func (s *QuestionService) Tags(ctx context.Context) ([]models.TagSummary, error) {
	tags := []models.TagSummary{}
	err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Select("tags.id, tags.name, COUNT(question_tags.question_id) AS question_count").
		Joins("LEFT JOIN question_tags ON question_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name").
		Scan(&tags).Error
	if err != nil {
		return nil, apperr.Internal("failed to fetch tags", err)
	}
	return tags, nil
}

func (s *QuestionService) load(ctx context.Context, id int) (*models.QuestionResponse, error) {
	db := s.db.WithContext(ctx)

	var q models.Question
	err := db.Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.name") }).
		First(&q, id).Error
	if err != nil {
		return nil, apperr.FromDB(err, "question not found")
	}

	counts, err := answerCounts(db, []int{q.ID})
	if err != nil {
		return nil, apperr.Internal("failed to count answers", err)
	}
	resp := toQuestionResponse(q, counts[q.ID])
	return &resp, nil
}

func toQuestionResponse(q models.Question, answerCount int64) models.QuestionResponse {
	tags := q.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return models.QuestionResponse{
		ID:               q.ID,
		Title:            q.Title,
		Body:             q.Body,
		Status:           q.Status,
		Author:           q.Author.Author(),
		Tags:             tags,
		AnswerCount:      answerCount,
		AcceptedAnswerID: q.AcceptedAnswerID,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

func questionIDs(questions []models.Question) []int {
	ids := make([]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func answerCounts(db *gorm.DB, ids []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		QuestionID int
		Count      int64
	}
	err := db.Model(&models.Answer{}).
		Select("question_id, COUNT(*) AS count").
		Where("question_id IN ?", ids).
		Group("question_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.QuestionID] = r.Count
	}
	return counts, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQuestionLimit
	case limit > maxQuestionLimit:
		return maxQuestionLimit
	default:
		return limit
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
