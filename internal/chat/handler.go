package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/domain"
	"github.com/pageturn/chat/internal/middleware"
)

// Handler exposes the chat core over HTTP: the websocket endpoint and the
// request/response history fetch.
type Handler struct {
	mgr    *Manager
	logger *slog.Logger
}

// NewHandler creates a chat handler with its dependencies.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{
		mgr:    mgr,
		logger: slog.Default().With("component", "chat_handler"),
	}
}

// ServeWS upgrades the request and runs the session lifecycle. The club
// binding comes from the URL and is immutable for the connection.
func (h *Handler) ServeWS(c echo.Context) error {
	identity, ok := c.Get(middleware.IdentityContextKey).(directory.Identity)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	clubID := c.QueryParam("club")
	if clubID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing club parameter"})
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Cross-origin browser clients are expected; token auth makes the
		// connection origin-independent.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return err
	}

	session := NewSession(h.mgr, conn, identity, clubID)
	if err := session.Join(); err != nil {
		// Join already reported the error on the wire and closed the
		// connection; from the HTTP side the upgrade still succeeded.
		h.logger.Info("Join refused", "user_id", identity.UserID, "club_id", clubID, "error", err)
		return nil
	}

	// Run blocks for the life of the connection; echo has nothing left to
	// write after an upgrade.
	session.Run()
	return nil
}

// HistoryGet serves GET /api/clubs/:clubId/messages. Deleted messages are
// included with redacted bodies so clients can render deletion notices.
func (h *Handler) HistoryGet(c echo.Context) error {
	identity, ok := c.Get(middleware.IdentityContextKey).(directory.Identity)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	clubID := c.Param("clubId")

	var member bool
	err := h.mgr.withTimeout(func(ctx context.Context) error {
		var err error
		member, err = h.mgr.clubs.IsMember(ctx, clubID, identity.UserID)
		return err
	})
	if err != nil {
		return h.errorJSON(c, err)
	}
	if !member && !identity.IsAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member of this club"})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = parsed
	}

	var before time.Time
	if raw := c.QueryParam("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid before cursor, want RFC3339"})
		}
		before = parsed
	}

	messages, err := h.mgr.History(clubID, limit, before)
	if err != nil {
		return h.errorJSON(c, err)
	}
	if messages == nil {
		messages = []*Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

func (h *Handler) errorJSON(c echo.Context, err error) error {
	code := domain.ErrorCode(err)
	status := http.StatusServiceUnavailable
	switch code {
	case "not_found":
		status = http.StatusNotFound
	case "forbidden":
		status = http.StatusForbidden
	case "validation":
		status = http.StatusBadRequest
	case "unauthorized":
		status = http.StatusUnauthorized
	}
	return c.JSON(status, echo.Map{"error": code})
}
