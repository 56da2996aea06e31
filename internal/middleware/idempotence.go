package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

type idempotenceEntry struct {
	done      bool
	expiresAt time.Time
}

type idempotenceStore struct {
	mu      sync.Mutex
	entries map[string]idempotenceEntry
}

// begin registers the key as in-flight. When the key is already present it
// returns the recorded state and false.
func (s *idempotenceStore) begin(key string, now time.Time) (idempotenceEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, k)
		}
	}

	if entry, exists := s.entries[key]; exists {
		return entry, false
	}
	s.entries[key] = idempotenceEntry{expiresAt: now.Add(idempotenceTTL)}
	return idempotenceEntry{}, true
}

func (s *idempotenceStore) finish(key string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return
	}
	if success {
		entry.done = true
		s.entries[key] = entry
	} else {
		delete(s.entries, key)
	}
}

// Idempotence prevents duplicate non-GET API requests from running twice
// within a 60 second window. HTML form posts are exempt since their retry
// behavior belongs to the browser.
func Idempotence() gin.HandlerFunc {
	store := &idempotenceStore{entries: make(map[string]idempotenceEntry)}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		entry, started := store.begin(key, time.Now())
		if !started {
			msg := "an identical request succeeded within the last 60 seconds"
			if !entry.done {
				msg = "an identical request is still being processed"
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      0,
				"code":    http.StatusConflict,
				"message": msg,
			})
			return
		}

		c.Next()

		status := c.Writer.Status()
		store.finish(key, status >= 200 && status < 400)
	}
}

// resolveIdempotenceKey returns the idempotence key for the current request.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	token := NormalizeToken(c.GetHeader("Authorization"))

	if len(body) == 0 && ua == "" && ip == "" && token == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ua + "|" + ip + "|" + token
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
