package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"character-quiz/internal/domain"
	"character-quiz/internal/service"
)

// QuizHandler mantiene dependencias para los endpoints del cuestionario.
type QuizHandler struct {
	logger   *zap.Logger
	quiz     *service.QuizService
	tokens   *service.JWTService
	registry *domain.TraitRegistry
	limiter  service.RateLimiter
}

// NewQuizHandler crea una instancia de QuizHandler con dependencias necesarias.
func NewQuizHandler(
	logger *zap.Logger,
	quiz *service.QuizService,
	tokens *service.JWTService,
	registry *domain.TraitRegistry,
	limiter service.RateLimiter,
) *QuizHandler {
	return &QuizHandler{
		logger:   logger,
		quiz:     quiz,
		tokens:   tokens,
		registry: registry,
		limiter:  limiter,
	}
}

// scenarioView expone el escenario sin los vectores de efecto.
type scenarioView struct {
	ID       string   `json:"id"`
	Subject  string   `json:"subject"`
	Role     string   `json:"role"`
	Scenario string   `json:"scenario"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

type sessionView struct {
	ID                string        `json:"id"`
	Version           int           `json:"version"`
	QuestionsAnswered int           `json:"questions_answered"`
	SessionLength     int           `json:"session_length"`
	IsComplete        bool          `json:"is_complete"`
	CurrentScenario   *scenarioView `json:"current_scenario,omitempty"`
	Deadline          *time.Time    `json:"deadline,omitempty"`
}

func (h *QuizHandler) toView(rec domain.SessionRecord) sessionView {
	view := sessionView{
		ID:                rec.ID,
		Version:           rec.Version,
		QuestionsAnswered: rec.State.QuestionsAnswered,
		SessionLength:     h.quiz.Engine().SessionLength(),
		IsComplete:        rec.State.IsComplete,
	}
	if sc := rec.State.CurrentScenario; sc != nil {
		view.CurrentScenario = &scenarioView{
			ID:       sc.ID,
			Subject:  sc.Subject,
			Role:     sc.Role,
			Scenario: sc.Narrative,
			Question: sc.Question,
			Choices:  sc.Choices,
		}
	}
	if !rec.Deadline.IsZero() {
		deadline := rec.Deadline
		view.Deadline = &deadline
	}
	return view
}

// ListTraits maneja GET /traits.
func (h *QuizHandler) ListTraits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"traits": h.registry.Definitions()})
}

// CreateSession maneja POST /sessions.
func (h *QuizHandler) CreateSession(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.Request.Context(), c.ClientIP()) {
		h.logger.Warn("session creation rate limited", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many sessions, try again later"})
		return
	}

	rec, err := h.quiz.StartSession(c.Request.Context())
	if err != nil {
		h.logger.Error("start session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}

	token, err := h.tokens.IssueSessionToken(rec)
	if err != nil {
		h.logger.Error("issue session token failed", zap.Error(err), zap.String("session_id", rec.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": h.toView(rec),
		"token":   token,
	})
}

// GetSession maneja GET /sessions/:id.
func (h *QuizHandler) GetSession(c *gin.Context) {
	rec, err := h.quiz.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.toView(rec)})
}

// SubmitChoice maneja POST /sessions/:id/choices.
func (h *QuizHandler) SubmitChoice(c *gin.Context) {
	var req struct {
		ChoiceIndex *int `json:"choice_index" binding:"required"`
		Version     int  `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid submit choice request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rec, err := h.quiz.SubmitChoice(c.Request.Context(), c.Param("id"), req.Version, *req.ChoiceIndex)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.toView(rec)})
}

// GetScores maneja GET /sessions/:id/scores. Sirve tambien a mitad de sesion.
func (h *QuizHandler) GetScores(c *gin.Context) {
	scores, err := h.quiz.Scores(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

// GetAnalysis maneja GET /sessions/:id/analysis.
func (h *QuizHandler) GetAnalysis(c *gin.Context) {
	analysis, scores, err := h.quiz.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis": analysis,
		"scores":   scores,
		"summary":  analysis.Describe(),
	})
}

// EndSession maneja DELETE /sessions/:id.
func (h *QuizHandler) EndSession(c *gin.Context) {
	if err := h.quiz.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuizHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidChoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, domain.ErrSessionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "session was updated concurrently"})
	case errors.Is(err, domain.ErrSessionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "session is still in progress"})
	default:
		h.logger.Error("quiz request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
