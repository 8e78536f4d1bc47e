package lobbyhandler

import (
	"matchlobby/internal/services/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LobbyService is the read side of the session engine.
type LobbyService interface {
	OpenSessions() []session.Summary
}

type Handler struct {
	svc LobbyService
}

func New(svc LobbyService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/sessions", h.list)
}

// list serves the lobby list as JSON, filtered by gameType and paged by
// limit/offset.
func (h *Handler) list(c *gin.Context) {
	var q ListSessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]session.Summary, 0)
	for _, s := range h.svc.OpenSessions() {
		if q.GameType == "" || string(s.GameType) == q.GameType {
			out = append(out, s)
		}
	}
	c.JSON(http.StatusOK, page(out, q.Limit, q.Offset))
}

func page(in []session.Summary, limit, offset int) []session.Summary {
	if offset >= len(in) {
		return []session.Summary{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
