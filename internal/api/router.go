package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
	"github.com/attendance-ledger-api/internal/service"
)

// Session headers
const (
	HeaderSubmitter = "X-Submitter"
	HeaderCenter    = "X-Center"
)

const sessionKey = "session"

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(sessionMiddleware())

	// Handlers
	rosterHandler := NewRosterHandler(services, cfg, log)
	attendanceHandler := NewAttendanceHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		// Roster endpoints
		roster := v1.Group("/roster")
		{
			roster.GET("", rosterHandler.ListPeople)
			roster.POST("", rosterHandler.AddPerson)
			roster.PATCH("/status", rosterHandler.SetPersonStatus)
			roster.POST("/imports", rosterHandler.CreateImport)
			roster.GET("/imports/:import_id", rosterHandler.GetImport)
			roster.GET("/imports/:import_id/errors", rosterHandler.GetImportErrors)
		}

		// Attendance endpoints
		attendance := v1.Group("/attendance")
		{
			attendance.POST("", attendanceHandler.Submit)
			attendance.GET("", attendanceHandler.ListCurrent)
			attendance.GET("/daily", attendanceHandler.DailyTotals)
			attendance.GET("/export", attendanceHandler.Export)
		}

		v1.POST("/ledger/repair", attendanceHandler.Repair)
		v1.GET("/access", attendanceHandler.CheckAccess)
		v1.GET("/access/policy", attendanceHandler.Policy)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "attendance-ledger-api",
	})
}

// metricsHandler returns roster and ledger sizes
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		people, err := services.Roster.ListPeople(ctx, "", true)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		records, err := services.Attendance.GetCurrentAttendance(ctx, models.AttendanceFilter{})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}

		active := 0
		perCenter := make(map[string]int)
		for _, p := range people {
			if p.Active {
				active++
				perCenter[string(p.Center)]++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"roster": gin.H{
				"total":      len(people),
				"active":     active,
				"per_center": perCenter,
			},
			"ledger": gin.H{
				"current_records": len(records),
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("submitter", sessionFrom(c).Submitter).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Idempotency-Key, "+HeaderSubmitter+", "+HeaderCenter)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// sessionMiddleware builds the caller's Session from the session headers.
// Handlers pass it on explicitly; services never look at the request.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := models.Session{Submitter: normalize.CleanCell(c.GetHeader(HeaderSubmitter))}
		if center := c.GetHeader(HeaderCenter); center != "" {
			sess.Center = normalize.NormalizeCenter(center)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(models.Session); ok {
			return sess
		}
	}
	return models.Session{}
}

// contextWithTimeout creates a context with timeout for handlers; a
// non-positive timeout only adds cancellation
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}
