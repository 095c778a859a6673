// Package server exposes the reconciliation and review workflow over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"payment-reconciliation-service/internal/ingest"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/store"
	apperrors "payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"
)

// ReconcilerService runs reconciliation for scopes.
type ReconcilerService interface {
	RunScope(ctx context.Context, scope string) (*reconciler.ScopeSummary, error)
	RunAllScopes(ctx context.Context) ([]*reconciler.ScopeSummary, error)
}

// MatchStore serves the review workflow.
type MatchStore interface {
	MatchesByScope(ctx context.Context, scope string, filter store.MatchFilter) ([]*models.Match, int64, error)
	MatchByID(ctx context.Context, scope, id string) (*models.Match, error)
	UpdateMatchStatus(ctx context.Context, scope, id string, status models.MatchStatus) (*models.Match, error)
	RecordFeedback(ctx context.Context, feedback *models.Feedback) error
}

// TransactionStore persists uploaded transactions.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []*models.Transaction) error
}

// Server wires the HTTP routes to the reconciliation service and store.
type Server struct {
	service      ReconcilerService
	matches      MatchStore
	transactions TransactionStore
	log          logger.Logger
}

// New creates a Server.
func New(service ReconcilerService, matches MatchStore, transactions TransactionStore) *Server {
	return &Server{
		service:      service,
		matches:      matches,
		transactions: transactions,
		log:          logger.GetGlobalLogger().WithComponent("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/transactions/:scope/:side", s.importTransactions)
		api.POST("/reconcile", s.runAllScopes)
		api.POST("/reconcile/:scope", s.runScope)
		api.GET("/matches/:scope", s.listMatches)
		api.GET("/matches/:scope/:id", s.getMatch)
		api.POST("/matches/:scope/:id/feedback", s.submitFeedback)
	}

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// importTransactions ingests a CSV export posted as the request body and
// stores its rows under the given scope and side.
func (s *Server) importTransactions(c *gin.Context) {
	scope := c.Param("scope")
	side := models.Side(c.Param("side"))
	if !side.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be collection or bank"})
		return
	}

	parser := ingest.NewCollectionParser()
	if side == models.SideBank {
		parser = ingest.NewBankParser()
	}

	transactions, stats, err := parser.Parse(c.Request.Body, "upload", scope)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.transactions.SaveTransactions(c.Request.Context(), transactions); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": len(transactions), "stats": stats})
}

func (s *Server) runScope(c *gin.Context) {
	scope := c.Param("scope")

	summary, err := s.service.RunScope(c.Request.Context(), scope)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) runAllScopes(c *gin.Context) {
	summaries, err := s.service.RunAllScopes(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scopes": summaries})
}

func (s *Server) listMatches(c *gin.Context) {
	scope := c.Param("scope")

	filter := store.MatchFilter{}
	if status := c.Query("status"); status != "" {
		ms := models.MatchStatus(status)
		if !ms.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + status})
			return
		}
		filter.Status = ms
	}
	if raw := c.Query("min_confidence"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 || value > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_confidence: " + raw})
			return
		}
		filter.MinConfidence = value
	}
	filter.Limit = intQuery(c, "limit", 100)
	filter.Offset = intQuery(c, "offset", 0)

	matches, total, err := s.matches.MatchesByScope(c.Request.Context(), scope, filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func (s *Server) getMatch(c *gin.Context) {
	match, err := s.matches.MatchByID(c.Request.Context(), c.Param("scope"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

type feedbackRequest struct {
	Action      models.FeedbackAction `json:"action" binding:"required"`
	Explanation string                `json:"explanation"`
}

// submitFeedback records a reviewer's verdict and flips the match status:
// confirm promotes it to manual, reject marks it rejected.
func (s *Server) submitFeedback(c *gin.Context) {
	scope := c.Param("scope")
	id := c.Param("id")

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !req.Action.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be confirm or reject"})
		return
	}

	ctx := c.Request.Context()
	match, err := s.matches.MatchByID(ctx, scope, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	status := models.MatchStatusManual
	if req.Action == models.FeedbackReject {
		status = models.MatchStatusRejected
	}

	updated, err := s.matches.UpdateMatchStatus(ctx, scope, id, status)
	if err != nil {
		s.fail(c, err)
		return
	}

	feedback := &models.Feedback{
		Scope:              scope,
		MatchID:            id,
		Action:             req.Action,
		Explanation:        req.Explanation,
		PreviousConfidence: match.Confidence,
		PreviousType:       match.Type,
	}
	if err := s.matches.RecordFeedback(ctx, feedback); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": updated, "feedback": feedback})
}

// fail translates application errors into HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := apperrors.AsReconcilerError(err); ok {
		switch {
		case appErr.Code == apperrors.CodeNotFound:
			status = http.StatusNotFound
		case appErr.Category == apperrors.CategoryValidation:
			status = http.StatusBadRequest
		}
	}

	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
