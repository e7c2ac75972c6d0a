// Package gateway exposes the inbound HTTP surface: the chat-gateway
// webhook that feeds updates into the router, plus the operational
// /healthz and /metrics endpoints. Middleware ordering follows the usual
// posture: request id first, then access logging, then recovery, then
// metrics.
package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyberguard/squadbot/internal/bot"
	"github.com/cyberguard/squadbot/internal/config"
	"github.com/cyberguard/squadbot/internal/domain"
)

// update is the wire form of one inbound chat event.
type update struct {
	MemberID int64  `json:"member_id" binding:"required"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Callback string `json:"callback"`
	// ChatID and MessageID identify the message whose button was pressed;
	// only meaningful with a callback.
	ChatID    int64  `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// NewEngine builds the Gin engine with middleware, operational endpoints,
// and the webhook route wired to the given router.
func NewEngine(cfg config.Config, b *bot.Bot) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())
	r.Use(Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:   []string{requestIDHeader, "Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders: []string{requestIDHeader, "Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhook", webhookAuth(cfg.WebhookToken), func(c *gin.Context) {
		var u update
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": err.Error()})
			return
		}
		b.HandleUpdate(c.Request.Context(), bot.Update{
			Member:   domain.MemberID(u.MemberID),
			Username: u.Username,
			Text:     u.Text,
			Callback: u.Callback,
			Ref: domain.DeliveryRef{
				ChatID:    domain.MemberID(u.ChatID),
				MessageID: u.MessageID,
			},
		})
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	return r
}

// webhookAuth enforces bearer auth on the webhook when a token is
// configured.
func webhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": "unauthorized", "message": "invalid webhook token",
			})
			return
		}
		c.Next()
	}
}

// NewServer wraps the engine in an http.Server with the configured
// timeouts.
func NewServer(cfg config.Config, b *bot.Bot) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewEngine(cfg, b),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
