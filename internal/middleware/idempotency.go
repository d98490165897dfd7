package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyPrefix = "idempotency:"

	pendingMarker = "pending"
	pendingTTL    = 30 * time.Second
)

// storedResponse is the replayable part of a response.
type storedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a POST or PUT carrying
// an Idempotency-Key header. Keys are scoped by route so the same key on two
// endpoints does not collide. A request arriving while the first one is still
// in flight is rejected with 409. A nil client disables the middleware.
func IdempotencyMiddleware(client *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if client == nil || key == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := idempotencyPrefix + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		acquired, err := client.SetNX(ctx, storeKey, pendingMarker, pendingTTL).Result()
		if err != nil {
			log.Printf("idempotency store unavailable, proceeding without it: %v", err)
			c.Next()
			return
		}

		if !acquired {
			stored, err := loadResponse(ctx, client, storeKey)
			switch {
			case err != nil:
				log.Printf("failed to load idempotent response: %v", err)
				c.Next()
			case stored == nil:
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
			default:
				c.Data(stored.StatusCode, stored.ContentType, stored.Body)
				c.Abort()
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		// Server errors and panics are not replayed; the client may retry them.
		stored := false
		defer func() {
			if !stored {
				client.Del(context.WithoutCancel(ctx), storeKey)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		response := storedResponse{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := saveResponse(context.WithoutCancel(ctx), client, storeKey, &response, ttl); err != nil {
			log.Printf("failed to store idempotent response: %v", err)
			return
		}
		stored = true
	}
}

// loadResponse returns nil, nil while the original request is still pending.
func loadResponse(ctx context.Context, client *redis.Client, key string) (*storedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(data) == pendingMarker {
		return nil, nil
	}

	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func saveResponse(ctx context.Context, client *redis.Client, key string, stored *storedResponse, ttl time.Duration) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}
