package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/middleware"
	"github.com/mentorium/mentorium-api/internal/services"
)

type SessionHandler struct {
	service services.SessionServiceInterface
}

func NewSessionHandler(service services.SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	session, err := h.service.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// CancelSession cancels a confirmed session. The slot is not re-opened.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	session, err := h.service.Cancel(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
