package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gamehive/server/api/rest"
	"github.com/gamehive/server/chat"
	"github.com/gamehive/server/config"
	mw "github.com/gamehive/server/middleware"
	"github.com/gamehive/server/social"
	"github.com/gamehive/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// apiHarness wires the full REST surface the way main.go does, minus the
// global middleware that tests do not need (rate limit, trace id).
type apiHarness struct {
	r  *gin.Engine
	db *gorm.DB
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}
	logger, _ := zap.NewDevelopment()

	socialSvc := social.NewService(db, logger)
	chatSvc := chat.NewService(db, socialSvc, 0, logger)

	authH := rest.NewAuthHandler(db, c, sec)
	friendsH := rest.NewFriendsHandler(socialSvc, nil)
	messagesH := rest.NewMessagesHandler(chatSvc, nil)

	r := gin.New()
	r.POST("/api/auth/login", authH.Login)

	api := r.Group("/api", mw.Auth(sec, c))
	api.POST("/friends", friendsH.Send)
	api.GET("/friends", friendsH.List)
	api.GET("/friends/requests", friendsH.ListRequests)
	api.PUT("/friends/:id/accept", friendsH.Accept)
	api.PUT("/friends/:id/reject", friendsH.Reject)
	api.DELETE("/friends/:id", friendsH.Cancel)
	api.PUT("/friends/block/:user_id", friendsH.Block)
	api.PUT("/friends/unblock/:user_id", friendsH.Unblock)
	api.PUT("/friends/favorite/:user_id", friendsH.Favorite)
	api.POST("/messages", messagesH.Send)
	api.GET("/messages/thread/:friend_id", messagesH.Thread)
	api.GET("/messages/conversations", messagesH.Conversations)
	api.DELETE("/messages/:id", messagesH.Delete)

	return &apiHarness{r: r, db: db}
}

// login auto-registers the username and returns its bearer token and id.
func (h *apiHarness) login(t *testing.T, username string) (string, int64) {
	t.Helper()
	w := postJSON(h.r, "/api/auth/login", map[string]string{
		"username": username,
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code, "login %s: %s", username, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string), int64(resp["user_id"].(float64))
}

func (h *apiHarness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
