package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sendRequest posts a friend request from token to addressee and returns
// the relationship id.
func sendRequest(t *testing.T, h *apiHarness, token string, addresseeID int64) int64 {
	t.Helper()
	w := h.do(http.MethodPost, "/api/friends", token, map[string]interface{}{"addressee_id": addresseeID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	return int64(resp["id"].(float64))
}

func TestFriends_RequestAcceptFlow(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	bTok, bID := h.login(t, "bob")

	relID := sendRequest(t, h, aTok, bID)

	// B sees the incoming request.
	w := h.do(http.MethodGet, "/api/friends/requests", bTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	requests := decodeBody(t, w)["requests"].([]interface{})
	require.Len(t, requests, 1)

	// B accepts.
	w = h.do(http.MethodPut, fmt.Sprintf("/api/friends/%d/accept", relID), bTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accepted", decodeBody(t, w)["status"])

	// Both sides list each other.
	for _, tok := range []string{aTok, bTok} {
		w = h.do(http.MethodGet, "/api/friends", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		friends := decodeBody(t, w)["friends"].([]interface{})
		assert.Len(t, friends, 1)
	}
}

func TestFriends_SelfRequestBadRequest(t *testing.T) {
	h := newAPIHarness(t)
	aTok, aID := h.login(t, "alice")

	w := h.do(http.MethodPost, "/api/friends", aTok, map[string]interface{}{"addressee_id": aID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriends_DuplicateRequestConflict(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	_, bID := h.login(t, "bob")

	sendRequest(t, h, aTok, bID)

	w := h.do(http.MethodPost, "/api/friends", aTok, map[string]interface{}{"addressee_id": bID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFriends_AcceptByRequesterForbidden(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	_, bID := h.login(t, "bob")

	relID := sendRequest(t, h, aTok, bID)

	w := h.do(http.MethodPut, fmt.Sprintf("/api/friends/%d/accept", relID), aTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFriends_AcceptMissingNotFound(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")

	w := h.do(http.MethodPut, "/api/friends/9999/accept", aTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriends_AcceptInvalidID(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")

	w := h.do(http.MethodPut, "/api/friends/abc/accept", aTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriends_RejectThenReapply(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	bTok, bID := h.login(t, "bob")

	relID := sendRequest(t, h, aTok, bID)

	w := h.do(http.MethodPut, fmt.Sprintf("/api/friends/%d/reject", relID), bTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", decodeBody(t, w)["status"])

	// The pair can try again after a rejection.
	w = h.do(http.MethodPost, "/api/friends", aTok, map[string]interface{}{"addressee_id": bID})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestFriends_CancelPending(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	bTok, bID := h.login(t, "bob")

	relID := sendRequest(t, h, aTok, bID)

	// Addressee cannot cancel.
	w := h.do(http.MethodDelete, fmt.Sprintf("/api/friends/%d", relID), bTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Requester can.
	w = h.do(http.MethodDelete, fmt.Sprintf("/api/friends/%d", relID), aTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Gone now.
	w = h.do(http.MethodDelete, fmt.Sprintf("/api/friends/%d", relID), aTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriends_BlockAndUnblock(t *testing.T) {
	h := newAPIHarness(t)
	aTok, aID := h.login(t, "alice")
	bTok, bID := h.login(t, "bob")

	// Block with no prior relationship.
	w := h.do(http.MethodPut, fmt.Sprintf("/api/friends/block/%d", bID), aTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "blocked", resp["status"])
	assert.Equal(t, float64(aID), resp["blocker_id"])

	// The blocked side cannot start a request.
	w = h.do(http.MethodPost, "/api/friends", bTok, map[string]interface{}{"addressee_id": aID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Only the blocker can unblock.
	w = h.do(http.MethodPut, fmt.Sprintf("/api/friends/unblock/%d", aID), bTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPut, fmt.Sprintf("/api/friends/unblock/%d", bID), aTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Pair is free again.
	w = h.do(http.MethodPost, "/api/friends", bTok, map[string]interface{}{"addressee_id": aID})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestFriends_FavoriteToggle(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	bTok, bID := h.login(t, "bob")

	relID := sendRequest(t, h, aTok, bID)
	w := h.do(http.MethodPut, fmt.Sprintf("/api/friends/%d/accept", relID), bTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Toggle on.
	w = h.do(http.MethodPut, fmt.Sprintf("/api/friends/favorite/%d", bID), aTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["is_favorite"])
	assert.NotNil(t, resp["record"])

	// Toggle off.
	w = h.do(http.MethodPut, fmt.Sprintf("/api/friends/favorite/%d", bID), aTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeBody(t, w)
	assert.Equal(t, false, resp["is_favorite"])
	assert.Nil(t, resp["record"])
}

func TestFriends_FavoriteWithoutFriendshipForbidden(t *testing.T) {
	h := newAPIHarness(t)
	aTok, _ := h.login(t, "alice")
	_, bID := h.login(t, "bob")

	w := h.do(http.MethodPut, fmt.Sprintf("/api/friends/favorite/%d", bID), aTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFriends_Unauthenticated(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodGet, "/api/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
