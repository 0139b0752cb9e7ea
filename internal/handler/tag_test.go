package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

func TestTagHandler_CRUD(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	var work model.Tag
	resp := server.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "work", "color": "#112233"}, &work)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "#112233", work.Color)
	assert.Equal(t, fmt.Sprintf("/api/tags/%d", work.ID), resp.Header.Get("Location"))

	var home model.Tag
	server.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "home"}, &home)
	assert.Contains(t, model.TagColors, home.Color, "color picked from the palette")

	t.Run("duplicate name", func(t *testing.T) {
		resp := server.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "work"}, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("bad color", func(t *testing.T) {
		resp := server.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "x", "color": "red"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list in creation order", func(t *testing.T) {
		var tags []model.Tag
		server.do(t, http.MethodGet, "/api/tags", nil, &tags)
		require.Len(t, tags, 2)
		assert.Equal(t, "work", tags[0].Name)
		assert.Equal(t, "home", tags[1].Name)
	})

	t.Run("rename", func(t *testing.T) {
		var renamed model.Tag
		resp := server.do(t, http.MethodPatch, fmt.Sprintf("/api/tags/%d", home.ID), map[string]string{"name": "house"}, &renamed)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "house", renamed.Name)
		assert.Equal(t, home.Color, renamed.Color)
	})

	t.Run("delete strips the tag from tasks", func(t *testing.T) {
		task := server.create(t, map[string]any{"title": "tagged", "tags": []int64{work.ID, home.ID}})

		resp := server.do(t, http.MethodDelete, fmt.Sprintf("/api/tags/%d", work.ID), nil, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		var got model.Task
		server.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil, &got)
		assert.Equal(t, []int64{home.ID}, got.Tags)

		resp = server.do(t, http.MethodGet, fmt.Sprintf("/api/tags/%d", work.ID), nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
