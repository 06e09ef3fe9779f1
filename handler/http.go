package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"live-translation/dto"
	"live-translation/pkg/sse"
	"live-translation/service"
)

// HTTP is the request/response surface over the session manager. Real-time
// data never flows through these handlers; they point clients at the event
// stream.
type HTTP struct {
	sessions     *service.SessionManager
	orchestrator *service.Orchestrator
	hub          *sse.Hub
}

func NewHTTP(sessions *service.SessionManager, orchestrator *service.Orchestrator, hub *sse.Hub) *HTTP {
	return &HTTP{
		sessions:     sessions,
		orchestrator: orchestrator,
		hub:          hub,
	}
}

// Register mounts every route under the given group.
func (h *HTTP) Register(r gin.IRouter) {
	r.POST("/sessions", h.createSession)
	r.GET("/sessions/active", h.activeSessions)
	r.GET("/sessions/:id", h.getSession)
	r.POST("/sessions/:id/join", h.joinSession)
	r.POST("/sessions/:id/leave", h.leaveSession)
	r.POST("/sessions/:id/language", h.changeLanguage)
	r.POST("/sessions/:id/end", h.endSession)
	r.GET("/sessions/:id/history", h.history)
	r.GET("/sessions/:id/events", h.events)
	r.GET("/imams/:id/sessions", h.sessionsByImam)
	r.GET("/statistics", h.statistics)
}

func (h *HTTP) createSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", service.ErrValidation, err.Error()))
		return
	}
	view, err := h.sessions.CreateSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateSessionResponse{
		Success:   true,
		SessionID: view.ID,
		Session:   view,
	})
}

func (h *HTTP) getSession(c *gin.Context) {
	view := h.sessions.GetSession(c.Param("id"))
	if view == nil {
		respondError(c, service.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTP) joinSession(c *gin.Context) {
	sessionID := c.Param("id")
	var req dto.JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", service.ErrValidation, err.Error()))
		return
	}
	view, err := h.sessions.ValidateJoin(sessionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.JoinSessionResponse{
		Success:   true,
		Session:   view,
		EventsURL: fmt.Sprintf("/api/sessions/%s/events", sessionID),
	})
}

func (h *HTTP) leaveSession(c *gin.Context) {
	var req dto.LeaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", service.ErrValidation, err.Error()))
		return
	}
	h.sessions.RemoveWorshipper(c.Param("id"), req.UserID, req.ConnectionID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTP) changeLanguage(c *gin.Context) {
	var req dto.ChangeLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", service.ErrValidation, err.Error()))
		return
	}
	err := h.sessions.UpdateWorshipperLanguage(c.Param("id"), req.ConnectionID, req.TargetLanguage, req.TargetLanguageName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTP) endSession(c *gin.Context) {
	var req dto.EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", service.ErrValidation, err.Error()))
		return
	}
	if err := h.sessions.EndSession(c.Request.Context(), c.Param("id"), req.CallerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": h.sessions.GetSession(c.Param("id"))})
}

func (h *HTTP) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	page, err := h.sessions.GetSessionHistory(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTP) sessionsByImam(c *gin.Context) {
	includeEnded := c.Query("includeEnded") == "true"
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessions.GetSessionsByImam(c.Param("id"), includeEnded),
	})
}

func (h *HTTP) activeSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessions.ActiveSessionsSummary(),
	})
}

func (h *HTTP) statistics(c *gin.Context) {
	active, total, worshippers := h.sessions.Stats()
	metrics := h.orchestrator.Metrics()
	c.JSON(http.StatusOK, dto.StatisticsResponse{
		ActiveSessions:    active,
		TotalSessions:     total,
		TotalWorshippers:  worshippers,
		TotalTranslations: metrics.TotalTranslations,
		TotalErrors:       metrics.TotalErrors,
		AvgCycleMs:        metrics.AvgCycleMs,
	})
}

// events attaches a long-lived event stream. A worshipper attach is the real
// roster join; the imam attach registers the speaker connection used for
// processing-error events.
func (h *HTTP) events(c *gin.Context) {
	sessionID := c.Param("id")
	userID := c.Query("userId")
	if userID == "" {
		respondError(c, fmt.Errorf("%w: userId is required", service.ErrValidation))
		return
	}
	connectionID := uuid.NewString()

	view := h.sessions.GetSession(sessionID)
	if view == nil {
		respondError(c, service.ErrSessionNotFound)
		return
	}

	isImam := c.Query("role") == "imam" && userID == view.ImamID
	if isImam {
		if err := h.sessions.SetImamConnection(sessionID, connectionID); err != nil {
			respondError(c, err)
			return
		}
		defer h.sessions.ClearImamConnection(sessionID, connectionID)
	} else {
		_, err := h.sessions.JoinSession(c.Request.Context(), sessionID, connectionID, dto.JoinSessionRequest{
			UserID:             userID,
			TargetLanguage:     c.Query("language"),
			TargetLanguageName: c.Query("languageName"),
			Password:           c.Query("password"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		defer h.sessions.RemoveWorshipper(sessionID, userID, connectionID)
	}

	client := sse.NewClient(connectionID, sessionID, userID)
	h.hub.Register(client)
	sse.Serve(h.hub, c.Writer, c.Request, client)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPasswordMismatch), errors.Is(err, service.ErrNotSessionOwner):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrSessionFull),
		errors.Is(err, service.ErrSessionEnded),
		errors.Is(err, service.ErrSessionNotActive),
		errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	}
	c.JSON(status, dto.ErrorResponse{Success: false, Error: err.Error()})
}
