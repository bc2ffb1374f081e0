package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/plazachat/vigil/moderation/engine"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Fire-and-forget entry point for the message-send flow: the message is
// already accepted for delivery, evaluation happens in the background. 202
// means "enqueued", not "evaluated".
func (s *Server) handleEvaluate(c echo.Context) error {
	var evt engine.MessageEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if evt.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}

	if err := s.scheduler.Enqueue(c.Request().Context(), &evt); err != nil {
		// enqueue only fails when the caller gave up; evaluation is
		// best-effort anyway
		s.logger.Warn("evaluate enqueue failed", "err", err, "userID", evt.UserID)
	}
	return c.NoContent(http.StatusAccepted)
}

// Synchronous gate consulted by the send path before accepting a message.
// Resolves from cache in the overwhelming majority of calls.
func (s *Server) handleMuted(c echo.Context) error {
	status := s.states.IsMuted(c.Request().Context(), c.Param("userID"))
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleAdminState(c echo.Context) error {
	state, err := s.states.GetState(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "state read failed")
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleAdminUserAudit(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	recs, err := s.auditlog.ListByUser(c.Request().Context(), c.Param("userID"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit read failed")
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) handleAdminAudit(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	recs, err := s.auditlog.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit read failed")
	}
	return c.JSON(http.StatusOK, recs)
}

// forcibly revoke an active mute, bypassing the escalation ladder
func (s *Server) handleAdminUnmute(c echo.Context) error {
	if err := s.states.ClearMute(c.Request().Context(), c.Param("userID")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "unmute failed")
	}
	return c.NoContent(http.StatusNoContent)
}
