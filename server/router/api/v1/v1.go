// Package v1 exposes the orchestrator over a thin JSON HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/plugin/ai/agent"
	apierrors "github.com/weiwangfds/love-agent/server/internal/errors"
	"github.com/weiwangfds/love-agent/store"
)

// APIV1Service binds the orchestrator operations to /api/v1 routes.
// Handlers only bind, call and encode; all semantics live in the agent.
type APIV1Service struct {
	Profile      *profile.Profile
	Store        *store.Store
	Orchestrator *agent.Orchestrator
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, orchestrator *agent.Orchestrator) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Store:        st,
		Orchestrator: orchestrator,
	}
}

// Register attaches all v1 routes to the given echo group.
func (s *APIV1Service) Register(g *echo.Group) {
	g.POST("/chat", s.chat)
	g.POST("/history/upload", s.uploadHistory)
	g.POST("/feedback", s.feedback)
	g.POST("/review", s.reviewChat)
	g.POST("/image", s.analyzeImage)

	g.GET("/initiative", s.initiative)
	g.GET("/radar", s.radar)
	g.GET("/profile", s.profile)
	g.GET("/profile/summary", s.profileSummary)
	g.GET("/history", s.history)
	g.GET("/metrics", s.metrics)
}

func (s *APIV1Service) metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, observability.GlobalMetrics().Snapshot())
}

func (s *APIV1Service) chat(c echo.Context) error {
	req := &agent.TurnRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, apierrors.InvalidArgument("malformed request: %v", err))
	}
	if req.SessionID == "" {
		return jsonError(c, apierrors.InvalidArgument("session_id is required"))
	}

	result, err := s.Orchestrator.ProcessTurn(c.Request().Context(), req)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, result)
}

type uploadHistoryRequest struct {
	SessionID string          `json:"session_id"`
	Messages  []store.Message `json:"messages"`
}

func (s *APIV1Service) uploadHistory(c echo.Context) error {
	req := &uploadHistoryRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, apierrors.InvalidArgument("malformed request: %v", err))
	}
	if req.SessionID == "" {
		return jsonError(c, apierrors.InvalidArgument("session_id is required"))
	}
	if len(req.Messages) == 0 {
		return jsonError(c, apierrors.InvalidArgument("messages must not be empty"))
	}

	result, err := s.Orchestrator.ProcessUploadedHistory(c.Request().Context(), req.SessionID, req.Messages)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, result)
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	LastReply string `json:"last_reply"`
}

func (s *APIV1Service) feedback(c echo.Context) error {
	req := &feedbackRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, apierrors.InvalidArgument("malformed request: %v", err))
	}
	if req.SessionID == "" {
		return jsonError(c, apierrors.InvalidArgument("session_id is required"))
	}
	if req.Reason == "" || req.LastReply == "" {
		return jsonError(c, apierrors.InvalidArgument("reason and last_reply are required"))
	}

	result, err := s.Orchestrator.HandleFeedback(c.Request().Context(), req.SessionID, req.Reason, req.LastReply)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, result)
}

type reviewRequest struct {
	Messages []store.Message `json:"messages"`
}

func (s *APIV1Service) reviewChat(c echo.Context) error {
	req := &reviewRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, apierrors.InvalidArgument("malformed request: %v", err))
	}
	if len(req.Messages) == 0 {
		return jsonError(c, apierrors.InvalidArgument("messages must not be empty"))
	}

	review, err := s.Orchestrator.ReviewChat(c.Request().Context(), req.Messages)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, review)
}

type imageRequest struct {
	SessionID string `json:"session_id"`
	ImageURL  string `json:"image_url"`
}

func (s *APIV1Service) analyzeImage(c echo.Context) error {
	req := &imageRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, apierrors.InvalidArgument("malformed request: %v", err))
	}
	if req.SessionID == "" || req.ImageURL == "" {
		return jsonError(c, apierrors.InvalidArgument("session_id and image_url are required"))
	}

	reply, err := s.Orchestrator.HandleImage(c.Request().Context(), req.SessionID, req.ImageURL)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

func (s *APIV1Service) initiative(c echo.Context) error {
	sessionID, apiErr := requireSessionID(c)
	if apiErr != nil {
		return jsonError(c, apiErr)
	}

	options, err := s.Orchestrator.GenerateInitiative(c.Request().Context(), sessionID)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"options": options})
}

func (s *APIV1Service) radar(c echo.Context) error {
	sessionID, apiErr := requireSessionID(c)
	if apiErr != nil {
		return jsonError(c, apiErr)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"radar": s.Orchestrator.GetRadar(c.Request().Context(), sessionID),
	})
}

func (s *APIV1Service) profile(c echo.Context) error {
	sessionID, apiErr := requireSessionID(c)
	if apiErr != nil {
		return jsonError(c, apiErr)
	}
	return c.JSON(http.StatusOK, s.Orchestrator.GetProfile(c.Request().Context(), sessionID))
}

func (s *APIV1Service) profileSummary(c echo.Context) error {
	sessionID, apiErr := requireSessionID(c)
	if apiErr != nil {
		return jsonError(c, apiErr)
	}

	summary, err := s.Orchestrator.SummarizeProfile(c.Request().Context(), sessionID)
	if err != nil {
		return jsonError(c, apierrors.FromTurn(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}

func (s *APIV1Service) history(c echo.Context) error {
	sessionID, apiErr := requireSessionID(c)
	if apiErr != nil {
		return jsonError(c, apiErr)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"history": s.Orchestrator.GetHistory(c.Request().Context(), sessionID),
	})
}

func requireSessionID(c echo.Context) (string, *apierrors.APIError) {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return "", apierrors.InvalidArgument("session_id query parameter is required")
	}
	return sessionID, nil
}

func jsonError(c echo.Context, err *apierrors.APIError) error {
	return c.JSON(err.HTTPStatus(), err)
}
