// Package httpapi exposes one library session over HTTP with gin.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ViniciusResende/PerguntaUFMG/access"
	wsadapter "github.com/ViniciusResende/PerguntaUFMG/adapters/websocket"
	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/engine"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pergunta"
	"github.com/ViniciusResende/PerguntaUFMG/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup is how long an idle client limiter is kept.
	RateLimitCleanup time.Duration
	// Logger receives one debug line per request when set.
	Logger *logging.Service
}

type handlers struct {
	lib *pergunta.Lib
}

// NewRouter builds the gin engine for lib. Routes:
//   - GET    {prefix}/healthz
//   - POST   {prefix}/auth, POST {prefix}/auth/signout, GET {prefix}/auth/user
//   - POST   {prefix}/rooms, GET {prefix}/rooms/:code, POST {prefix}/rooms/end
//   - POST   {prefix}/rooms/questions, DELETE {prefix}/rooms/questions/:id
//   - POST   {prefix}/rooms/questions/:id/{like,answered,highlight}
//   - DELETE {prefix}/rooms/questions/:id/likes/:likeId
//   - WS     {prefix}/ws
func NewRouter(lib *pergunta.Lib, hub *realtime.Hub, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	if opts.AllowCORSOrigin != "" {
		r.Use(cors(opts.AllowCORSOrigin))
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		r.Use(rateLimit(newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)))
	}
	if len(opts.APIKeys) > 0 {
		r.Use(apiKeyAuth(opts.APIKeys))
	}
	r.NoRoute(func(c *gin.Context) { writeError(c, http.StatusNotFound, "not_found", "route not found") })

	h := &handlers{lib: lib}
	g := r.Group(opts.PathPrefix)
	g.GET("/healthz", h.health)

	g.POST("/auth", h.signIn)
	g.POST("/auth/signout", h.signOut)
	g.GET("/auth/user", h.user)

	g.POST("/rooms", h.createRoom)
	g.GET("/rooms/:code", h.joinRoom)
	g.POST("/rooms/end", h.endRoom)
	g.POST("/rooms/questions", h.sendQuestion)
	g.DELETE("/rooms/questions/:id", h.deleteQuestion)
	g.POST("/rooms/questions/:id/like", h.likeQuestion)
	g.DELETE("/rooms/questions/:id/likes/:likeId", h.dislikeQuestion)
	g.POST("/rooms/questions/:id/answered", h.markAnswered)
	g.POST("/rooms/questions/:id/highlight", h.highlight)

	if hub != nil {
		g.GET("/ws", gin.WrapH(wsadapter.Handler(hub)))
	}
	return r
}

func (h *handlers) health(c *gin.Context) {
	checks := gin.H{"configuration": "ok"}
	status := http.StatusOK
	state := "healthy"
	if !h.lib.Utilities.Configuration().HasAPIConfig() {
		checks["configuration"] = "missing"
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (h *handlers) signIn(c *gin.Context) {
	user := h.lib.Auth.Auth(c.Request.Context())
	if user == nil {
		writeError(c, http.StatusUnauthorized, "authentication_failed", "authentication failed")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handlers) signOut(c *gin.Context) {
	if err := h.lib.Auth.SignOut(c.Request.Context()); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) user(c *gin.Context) {
	user := h.lib.Auth.AuthenticatedUser(c.Request.Context())
	if user == nil {
		writeError(c, http.StatusNotFound, "no_user", "no authenticated user")
		return
	}
	c.JSON(http.StatusOK, user)
}

type createRoomRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	ctx := c.Request.Context()
	user := h.lib.Auth.AuthenticatedUser(ctx)
	if user == nil {
		writeError(c, http.StatusUnauthorized, "not_authenticated", "sign in to create a room")
		return
	}
	room, err := h.lib.Rooms.CreateRoom(ctx, core.CreateRoomData{Title: req.Title, AuthorID: user.ID})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *handlers) joinRoom(c *gin.Context) {
	code := c.Param("code")
	if err := core.ValidateRoomCode(code); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_room", err.Error())
		return
	}
	room, err := h.lib.Rooms.JoinRoom(c.Request.Context(), code)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) endRoom(c *gin.Context) {
	if err := h.lib.Rooms.EndRoom(c.Request.Context()); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.lib.Rooms.RoomMetadata())
}

type sendQuestionRequest struct {
	Content     string `json:"content" binding:"required"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// sendQuestion and the other moderation and voting routes answer 202: the
// outcome reaches clients as a room update or a toast on the stream.
func (h *handlers) sendQuestion(c *gin.Context) {
	var req sendQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	ctx := c.Request.Context()
	data := core.CreateQuestionData{Content: req.Content, IsAnonymous: req.IsAnonymous}
	if user := h.lib.Auth.AuthenticatedUser(ctx); user != nil {
		data.Author = core.QuestionAuthor{Name: user.Name, Profile: user.Profile}
	}
	h.lib.Rooms.SendQuestion(ctx, data)
	accepted(c)
}

func (h *handlers) deleteQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	if err := h.lib.Rooms.DeleteQuestion(c.Request.Context(), id); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) likeQuestion(c *gin.Context) {
	if id, ok := questionID(c); ok {
		h.lib.Rooms.LikeQuestion(c.Request.Context(), id)
		accepted(c)
	}
}

func (h *handlers) dislikeQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	likeID := c.Param("likeId")
	if err := core.ValidateID(likeID); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_like", err.Error())
		return
	}
	h.lib.Rooms.DislikeQuestion(c.Request.Context(), id, likeID)
	accepted(c)
}

func (h *handlers) markAnswered(c *gin.Context) {
	if id, ok := questionID(c); ok {
		h.lib.Rooms.CheckQuestionAsAnswered(c.Request.Context(), id)
		accepted(c)
	}
}

func (h *handlers) highlight(c *gin.Context) {
	if id, ok := questionID(c); ok {
		h.lib.Rooms.HighlightQuestion(c.Request.Context(), id)
		accepted(c)
	}
}

func questionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := core.ValidateID(id); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_question", err.Error())
		return "", false
	}
	return id, true
}

func accepted(c *gin.Context) { c.JSON(http.StatusAccepted, gin.H{"ok": true}) }

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: msg})
}

// writeEngineError maps library errors to a status and an error code.
func writeEngineError(c *gin.Context, err error) {
	code := "internal"
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		code = engErr.Kind()
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, engine.ErrNotAuthor):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNoRoomSelected), errors.Is(err, engine.ErrRoomEnded):
		status = http.StatusConflict
	case errors.Is(err, access.ErrConfigurationMissing):
		status, code = http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, access.ErrInvalidArguments):
		status, code = http.StatusBadRequest, "invalid_input"
	}
	writeError(c, status, code, err.Error())
}
