package assistant

import (
	"bytes"
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
	"github.com/emilythestrangee/qa-forum/backend/internal/policy"
)

const (
	ConfidenceGenerated = 0.99
	ConfidenceNoKey     = 0.3
	ConfidenceFailed    = 0.0

	minQuestionLength = 3
	maxQuestionLength = 4000

	noKeyAnswer  = "This is a programming question that would typically be answered by the assistant. The text-generation service is not configured, so this is a placeholder response. Set LLM_API_KEY to get real suggestions."
	failedAnswer = "Sorry, I encountered an error while processing your question. Please try again."
)

var looksLikeHTML = regexp.MustCompile(`(?is)<[a-z][\s\S]*>`)

type Suggestion struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

type Service struct {
	gen      Generator
	timeout  time.Duration
	log      *logrus.Logger
	metrics  *observability.Metrics
	markdown goldmark.Markdown
}

// New builds the assistant. A nil generator means no credentials are
// configured and every request gets the placeholder answer.
func New(gen Generator, timeout time.Duration, log *logrus.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		gen:      gen,
		timeout:  timeout,
		log:      log,
		metrics:  metrics,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Suggest drafts an answer. Only authorization and input validation can
// fail; generation problems come back as a low-confidence fallback.
func (s *Service) Suggest(ctx context.Context, actor *models.User, question string) (*Suggestion, error) {
	if err := policy.Authorize(actor, policy.RequestSuggestion, policy.Resource{}); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if utf8.RuneCountInString(question) < minQuestionLength {
		return nil, apperr.InvalidOperation("question must be at least 3 characters")
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return nil, apperr.InvalidOperation("question is too long")
	}

	answer, confidence := s.generate(ctx, question)
	return &Suggestion{
		Question:   question,
		Answer:     s.ensureHTML(answer),
		Confidence: confidence,
	}, nil
}

func (s *Service) generate(ctx context.Context, question string) (string, float64) {
	if s.gen == nil {
		s.metrics.AssistantRequestsTotal.WithLabelValues("no_key").Inc()
		return noKeyAnswer, ConfidenceNoKey
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.gen.Generate(ctx, question)
	s.metrics.AssistantDurationSeconds.Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.AssistantRequestsTotal.WithLabelValues(outcome).Inc()
		s.log.WithError(err).WithField("outcome", outcome).Warn("Suggested answer fell back")
		return failedAnswer, ConfidenceFailed
	}

	s.metrics.AssistantRequestsTotal.WithLabelValues("generated").Inc()
	return answer, ConfidenceGenerated
}

// ensureHTML passes HTML through and renders anything else as markdown.
// Raw HTML inside markdown is dropped by the renderer.
func (s *Service) ensureHTML(text string) string {
	trimmed := strings.TrimSpace(text)
	if looksLikeHTML.MatchString(trimmed) {
		return trimmed
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(trimmed), &buf); err != nil {
		s.log.WithError(err).Warn("Failed to render markdown")
		return "<p>" + html.EscapeString(trimmed) + "</p>"
	}
	return buf.String()
}
