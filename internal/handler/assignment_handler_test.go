package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/dto"
)

func TestAssignmentLifecycle(t *testing.T) {
	board := setupBoardApp(t)

	resp, body := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject":     "영어",
		"dueDate":     "2024-03-04",
		"name":        "Vocabulary quiz",
		"description": "Unit 3",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, body.Success)

	var created []dto.AssignmentResponse
	decodeData(t, body, &created)
	require.Len(t, created, 1)
	require.Equal(t, "영어", created[0].Subject)
	require.Equal(t, "#3B82F6", created[0].Style.Color)
	require.False(t, created[0].Completed)
	id := created[0].ID

	board.waitForAssignments(t, 1)

	resp, body = board.do(t, http.MethodGet, "/api/v1/assignments", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed []dto.AssignmentResponse
	decodeData(t, body, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, id, listed[0].ID)

	resp, body = board.do(t, http.MethodPatch, "/api/v1/assignments/"+id+"/toggle", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var toggled dto.AssignmentResponse
	decodeData(t, body, &toggled)
	require.True(t, toggled.Completed)

	require.Eventually(t, func() bool {
		a, ok := board.assignments.Get(id)
		return ok && a.Completed
	}, fiberWait, pollInterval)

	resp, body = board.do(t, http.MethodPut, "/api/v1/assignments/"+id+"/completed", map[string]bool{"completed": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated dto.AssignmentResponse
	decodeData(t, body, &updated)
	require.False(t, updated.Completed)

	resp, _ = board.do(t, http.MethodDelete, "/api/v1/assignments/"+id, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	board.waitForAssignments(t, 0)
}

func TestCreateRepeatingAssignmentsExpandsWeekly(t *testing.T) {
	board := setupBoardApp(t)

	resp, body := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject":     "국어",
		"dueDate":     "2024-03-04",
		"name":        "Reading log",
		"isRepeating": true,
		"repeatCount": 3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created []dto.AssignmentResponse
	decodeData(t, body, &created)
	require.Len(t, created, 3)
	require.Equal(t, "2024-03-04", created[0].DueDate)
	require.Equal(t, "2024-03-11", created[1].DueDate)
	require.Equal(t, "2024-03-18", created[2].DueDate)

	board.waitForAssignments(t, 3)
}

func TestCreateRepeatingAssignmentRequiresRepeatCount(t *testing.T) {
	board := setupBoardApp(t)

	for _, count := range []int{0, -1, 21} {
		resp, body := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
			"subject":     "국어",
			"dueDate":     "2024-03-04",
			"name":        "Reading log",
			"isRepeating": true,
			"repeatCount": count,
		})
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, count)
		require.False(t, body.Success)
	}

	resp, _ := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject": "국어",
		"dueDate": "2024-03-04",
		"name":    "One-off",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	board.waitForAssignments(t, 1)
}

func TestCreateAssignmentKeepsPlainTextCharacters(t *testing.T) {
	board := setupBoardApp(t)

	resp, body := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject":     "수학공통",
		"dueDate":     "2024-05-01",
		"name":        "p.3 & p.4 (x < 3)",
		"description": "Tom's notes",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created []dto.AssignmentResponse
	decodeData(t, body, &created)
	require.Equal(t, "p.3 & p.4 (x < 3)", created[0].Name)

	board.waitForAssignments(t, 1)
	stored := board.assignments.All()
	require.Equal(t, "p.3 & p.4 (x < 3)", stored[0].Name)
	require.Equal(t, "Tom's notes", stored[0].Description)
}

func TestCreateAssignmentRejectsIncompleteDraft(t *testing.T) {
	board := setupBoardApp(t)

	resp, body := board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject": "국어",
		"dueDate": "2024-03-04",
		"name":    "   ",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)

	resp, _ = board.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"subject": "국어",
		"dueDate": "2024-13-40",
		"name":    "Essay",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	require.Empty(t, board.assignments.All())
}

func TestAssignmentWritesOnUnknownIDReturnNotFound(t *testing.T) {
	board := setupBoardApp(t)

	resp, body := board.do(t, http.MethodPatch, "/api/v1/assignments/missing/toggle", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "assignment not found", body.Message)

	resp, _ = board.do(t, http.MethodDelete, "/api/v1/assignments/missing", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = board.do(t, http.MethodPut, "/api/v1/assignments/missing/completed", map[string]bool{"completed": true})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssignmentWritesRejectInvalidInput(t *testing.T) {
	board := setupBoardApp(t)

	resp, _ := board.do(t, http.MethodDelete, "/api/v1/assignments/a.b", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = board.do(t, http.MethodPut, "/api/v1/assignments/abc/completed", map[string]string{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
