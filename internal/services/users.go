package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

const (
	localSubjectPrefix = "local|"
	maxUsernameLength  = 30
	minUsernameLength  = 3
	resolveAttempts    = 3
)

var usernameInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

type UserService struct {
	db     *gorm.DB
	log    *logrus.Logger
	tokens *auth.Tokens
}

func NewUserService(db *gorm.DB, log *logrus.Logger, tokens *auth.Tokens) *UserService {
	return &UserService{db: db, log: log, tokens: tokens}
}

func (s *UserService) Get(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user not found")
	}
	return &user, nil
}

// Resolve maps a token subject to a profile, creating one with a generated
// unique username on first sight. A concurrent first request for the same
// subject loses the insert race and re-reads the winner's row.
func (s *UserService) Resolve(ctx context.Context, subject, hint string) (*models.User, error) {
	if subject == "" {
		return nil, apperr.Unauthorized("token has no subject")
	}
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		var user models.User
		err := db.Where("subject = ?", subject).Take(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal("failed to load profile", err)
		}

		username, err := s.ensureUniqueUsername(db, usernameFromHint(hint))
		if err != nil {
			return nil, err
		}
		user = models.User{Subject: subject, Username: username, Role: models.RoleUser}
		err = db.Create(&user).Error
		if err == nil {
			s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("Created profile")
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Internal("failed to create profile", err)
		}
	}
	return nil, apperr.Internal("failed to create profile", fmt.Errorf("username or subject kept colliding for %q", subject))
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, apperr.Internal("failed to check email", err)
	}
	if existing > 0 {
		return nil, apperr.InvalidOperation("email already registered")
	}

	username := strings.TrimSpace(req.Username)
	if username != "" {
		if err := db.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
			return nil, apperr.Internal("failed to check username", err)
		}
		if existing > 0 {
			return nil, apperr.InvalidOperation("username already taken")
		}
	} else {
		var err error
		if username, err = s.ensureUniqueUsername(db, usernameFromHint(email)); err != nil {
			return nil, err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := models.User{
		Subject:  localSubjectPrefix + uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hashed),
		Avatar:   req.Avatar,
		Role:     models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.InvalidOperation("username already taken")
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	s.log.WithField("user_id", user.ID).Info("Registered local account")

	return s.issue(&user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? AND password <> ''", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(&user)
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.Subject, user.Username)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

// usernameFromHint turns a display name or email into a username
// candidate, or a random one when nothing usable is left.
func usernameFromHint(hint string) string {
	if at := strings.IndexByte(hint, '@'); at >= 0 {
		hint = hint[:at]
	}
	name := usernameInvalidChars.ReplaceAllString(strings.TrimSpace(hint), "-")
	name = strings.Trim(name, "-.")
	if len(name) > maxUsernameLength {
		name = name[:maxUsernameLength]
	}
	if len(name) < minUsernameLength {
		return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return name
}

func (s *UserService) ensureUniqueUsername(db *gorm.DB, base string) (string, error) {
	username := base
	for counter := 1; ; counter++ {
		var n int64
		if err := db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return "", apperr.Internal("failed to check username", err)
		}
		if n == 0 {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}
