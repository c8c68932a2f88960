package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/dto"
)

func createSession(t *testing.T, board *testBoard) dto.SessionResponse {
	t.Helper()
	resp, body := board.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var session dto.SessionResponse
	decodeData(t, body, &session)
	require.NotEmpty(t, session.ID)
	return session
}

func TestSessionDraftSubmitFlow(t *testing.T) {
	board := setupBoardApp(t)
	session := createSession(t, board)
	require.False(t, session.ModalOpen)
	require.Equal(t, "국어", session.Draft.Subject)
	require.False(t, session.CanSubmit)

	base := "/api/v1/sessions/" + session.ID

	resp, body := board.do(t, http.MethodPost, base+"/modal/open", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.True(t, session.ModalOpen)

	resp, body = board.do(t, http.MethodPatch, base+"/draft", map[string]interface{}{"name": "Essay"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Equal(t, "Essay", session.Draft.Name)
	require.False(t, session.CanSubmit)

	resp, body = board.do(t, http.MethodPost, base+"/draft/submit", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "draft incomplete, nothing submitted", body.Message)
	var result dto.SessionSubmitResponse
	decodeData(t, body, &result)
	require.False(t, result.Submitted)
	require.Empty(t, result.Created)
	require.True(t, result.Session.ModalOpen)

	resp, body = board.do(t, http.MethodPatch, base+"/draft", map[string]interface{}{
		"subject":     "사문",
		"dueDate":     "2024-03-05",
		"isRepeating": true,
		"repeatCount": 2,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.True(t, session.CanSubmit)

	resp, body = board.do(t, http.MethodPost, base+"/draft/submit", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeData(t, body, &result)
	require.True(t, result.Submitted)
	require.Len(t, result.Created, 2)
	require.Equal(t, "Essay(1)", result.Created[0].Name)
	require.Equal(t, "2024-03-12", result.Created[1].DueDate)
	require.False(t, result.Session.ModalOpen)
	require.Empty(t, result.Session.Draft.Name)

	board.waitForAssignments(t, 2)
}

func TestSessionCloseKeepsDraft(t *testing.T) {
	board := setupBoardApp(t)
	session := createSession(t, board)
	base := "/api/v1/sessions/" + session.ID

	board.do(t, http.MethodPost, base+"/modal/open", nil)
	board.do(t, http.MethodPatch, base+"/draft", map[string]interface{}{"name": "Half typed"})

	resp, body := board.do(t, http.MethodPost, base+"/modal/close", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.False(t, session.ModalOpen)
	require.Equal(t, "Half typed", session.Draft.Name)

	resp, body = board.do(t, http.MethodGet, base, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Equal(t, "Half typed", session.Draft.Name)
}

func TestSessionNavigation(t *testing.T) {
	board := setupBoardApp(t)
	session := createSession(t, board)
	base := "/api/v1/sessions/" + session.ID

	resp, body := board.do(t, http.MethodPut, base+"/tab", map[string]int{"tab": 3})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Equal(t, 3, session.ActiveTab)

	resp, _ = board.do(t, http.MethodPut, base+"/tab", map[string]int{"tab": 7})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = board.do(t, http.MethodPut, base+"/date", map[string]string{"date": "2024-03-04"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Equal(t, "2024-03-04", session.SelectedDate)

	resp, body = board.do(t, http.MethodPut, base+"/date", map[string]string{"date": ""})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Empty(t, session.SelectedDate)

	resp, _ = board.do(t, http.MethodPut, base+"/date", map[string]string{"date": "03/04/2024"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	start, err := time.Parse("2006-01", session.Month)
	require.NoError(t, err)

	resp, body = board.do(t, http.MethodPost, base+"/month", map[string]int{"delta": -13})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &session)
	require.Equal(t, start.AddDate(0, -13, 0).Format("2006-01"), session.Month)
}

func TestSessionNotFound(t *testing.T) {
	board := setupBoardApp(t)
	session := createSession(t, board)

	resp, _ := board.do(t, http.MethodDelete, "/api/v1/sessions/"+session.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := board.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "session not found", body.Message)

	resp, _ = board.do(t, http.MethodPost, "/api/v1/sessions/unknown/modal/open", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
