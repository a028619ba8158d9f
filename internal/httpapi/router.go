// Package httpapi assembles the Gin router for the REST surface around the
// websocket edge: room creation/lookup, a join-code QR code, health probes,
// and the Prometheus scrape endpoint.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skip2/go-qrcode"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/health"
	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/middleware"
	"github.com/partyquiz/server/internal/transport"
)

const serviceName = "partyquiz-server"

const qrSize = 320

// RoomManager is the subset of *lobby.Manager the REST surface needs.
type RoomManager interface {
	CreateRoom(ctx context.Context) (lobby.RoomSnapshot, error)
	Snapshot(code string) (lobby.RoomSnapshot, error)
	AddBot(ctx context.Context, code, playerID, name string, skill int) (lobby.RoomSnapshot, error)
}

// Config bundles everything the router needs to wire its routes.
type Config struct {
	Rooms          RoomManager
	Hub            *transport.Hub
	Health         *health.Handler
	AllowedOrigins []string
	PublicBaseURL  string // scheme://host used to render the join URL in /qr; may be empty to derive from the request
}

// New builds the Gin engine: CORS, recovery, correlation id, the REST room
// routes, the websocket upgrade route, health probes, and /metrics.
func New(cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	api := &api{cfg: cfg}

	rooms := router.Group("/rooms")
	{
		rooms.POST("", api.createRoom)
		rooms.GET("/:code", api.getRoom)
		rooms.GET("/:code/qr", api.roomQR)
		rooms.POST("/:code/bots", api.addBot)
	}

	router.GET("/ws", cfg.Hub.ServeWs)

	router.GET("/health/live", cfg.Health.Liveness)
	router.GET("/health/ready", cfg.Health.Readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

type api struct {
	cfg Config
}

func (a *api) createRoom(c *gin.Context) {
	snapshot, err := a.cfg.Rooms.CreateRoom(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (a *api) getRoom(c *gin.Context) {
	snapshot, err := a.cfg.Rooms.Snapshot(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type addBotRequest struct {
	DisplayName string `json:"displayName"`
	Skill       int    `json:"skill"`
}

// addBot seats an autoplay-driven bot player in the room, a host-screen
// affordance for filling out a small lobby.
func (a *api) addBot(c *gin.Context) {
	var req addBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STATE", "message": "malformed request body"})
		return
	}

	snapshot, err := a.cfg.Rooms.AddBot(c.Request.Context(), c.Param("code"), "bot-"+uuid.NewString(), req.DisplayName, req.Skill)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// roomQR renders a PNG QR code encoding the join URL for the room's code.
func (a *api) roomQR(c *gin.Context) {
	code := c.Param("code")
	if _, err := a.cfg.Rooms.Snapshot(code); err != nil {
		writeError(c, err)
		return
	}

	joinURL := a.joinURL(c, code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "qr generation failed"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (a *api) joinURL(c *gin.Context, code string) string {
	base := a.cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	return fmt.Sprintf("%s/join/%s", base, code)
}

func writeError(c *gin.Context, err error) {
	kind, ok := apierr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "something went wrong"})
		return
	}
	c.JSON(statusForKind(kind), gin.H{"code": string(kind), "message": err.Error()})
}

func statusForKind(kind apierr.Kind) int {
	switch kind {
	case apierr.RoomNotFound:
		return http.StatusNotFound
	case apierr.RoomLocked, apierr.RoomFull, apierr.NameTaken, apierr.AlreadyHost,
		apierr.NotHost, apierr.NotRoundLeader, apierr.RoundAlreadyStarted,
		apierr.NotEnoughPlayers, apierr.PlayerNoped, apierr.BoosterBlockedByShield:
		return http.StatusConflict
	case apierr.NameInvalid, apierr.InvalidCategory, apierr.InvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
