package api

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"billbook/internal/engine"
)

const (
	headerRequestID = "X-Request-Id"
	headerUserID    = "X-User-Id"
	headerUserRole  = "X-User-Role"

	ctxKeyActor = "actor"
)

// RequestID вешает ULID на каждый запрос (или пробрасывает присланный).
func RequestID() gin.HandlerFunc {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			mu.Lock()
			id = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
			mu.Unlock()
		}
		c.Header(headerRequestID, id)
		c.Set(headerRequestID, id)
		c.Next()
	}
}

// AccessLog — структурный лог запроса после обработки.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("request_id", c.GetString(headerRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("role", actorFrom(c).Role),
		)
	}
}

// Auth снимает идентичность из заголовков, которые проставляет внешний
// слой аутентификации. Сам движок ничего не аутентифицирует.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyActor, engine.Actor{
			ID:   c.GetHeader(headerUserID),
			Role: c.GetHeader(headerUserRole),
		})
		c.Next()
	}
}

func actorFrom(c *gin.Context) engine.Actor {
	if v, ok := c.Get(ctxKeyActor); ok {
		if a, ok := v.(engine.Actor); ok {
			return a
		}
	}
	return engine.Actor{}
}
