package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apirest "github.com/gamehive/server/api/rest"
	"github.com/gamehive/server/audit"
	"github.com/gamehive/server/cache"
	"github.com/gamehive/server/chat"
	"github.com/gamehive/server/config"
	mw "github.com/gamehive/server/middleware"
	"github.com/gamehive/server/social"
	"github.com/gamehive/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with all subsystems wired together.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	Audit  *audit.Service
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	Sec    config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	// ---- Services ----
	auditSvc := audit.New(db, logger)
	socialSvc := social.NewService(db, logger)
	chatSvc := chat.NewService(db, socialSvc, chat.DefaultMaxMessageLen, logger)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(db, c, sec)
	friendsH := apirest.NewFriendsHandler(socialSvc, auditSvc)
	messagesH := apirest.NewMessagesHandler(chatSvc, auditSvc)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(sec, c))
		friendsG.POST("", friendsH.Send)
		friendsG.GET("", friendsH.List)
		friendsG.GET("/requests", friendsH.ListRequests)
		friendsG.PUT("/:id/accept", friendsH.Accept)
		friendsG.PUT("/:id/reject", friendsH.Reject)
		friendsG.DELETE("/:id", friendsH.Cancel)
		friendsG.PUT("/block/:user_id", friendsH.Block)
		friendsG.PUT("/unblock/:user_id", friendsH.Unblock)
		friendsG.PUT("/favorite/:user_id", friendsH.Favorite)

		messagesG := api.Group("/messages")
		messagesG.Use(mw.Auth(sec, c))
		messagesG.POST("", messagesH.Send)
		messagesG.GET("/thread/:friend_id", messagesH.Thread)
		messagesG.GET("/conversations", messagesH.Conversations)
		messagesG.DELETE("/:id", messagesH.Delete)
	}

	// ---- Start server ----
	server := httptest.NewServer(r)

	ts := &TestServer{
		DB:     db,
		Cache:  c,
		Audit:  auditSvc,
		Server: server,
		URL:    server.URL,
		Sec:    sec,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the test server and flushes the audit writer.
func (ts *TestServer) Close() {
	ts.Audit.Stop(nil)
	ts.Server.Close()
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Put sends a PUT request with JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest("PUT", ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Delete sends a DELETE request with optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("DELETE", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Login logs in (auto-registers on first call) and returns the token and user ID.
func (ts *TestServer) Login(t *testing.T, username, password string) (token string, userID int64) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	token = result["token"].(string)
	userID = int64(result["user_id"].(float64))
	return
}

// SendFriendRequest sends a friend request and returns the relationship ID.
func (ts *TestServer) SendFriendRequest(t *testing.T, token string, addresseeID int64) int64 {
	t.Helper()
	resp := ts.PostJSON(t, "/api/friends", map[string]interface{}{
		"addressee_id": addresseeID,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rel map[string]interface{}
	ReadJSON(t, resp, &rel)
	return int64(rel["id"].(float64))
}

// SendMessage sends a private message and returns its ID.
func (ts *TestServer) SendMessage(t *testing.T, token string, receiverID int64, content string) int64 {
	t.Helper()
	resp := ts.PostJSON(t, "/api/messages", map[string]interface{}{
		"receiver_id": receiverID,
		"content":     content,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var msg map[string]interface{}
	ReadJSON(t, resp, &msg)
	return int64(msg["id"].(float64))
}

// UniqueID returns a short unique string suitable for usernames.
var testCounter uint64

func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
