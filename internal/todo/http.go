// Package todo は /api/todos 配下のハンドラーを提供します。
// すべての操作はログイン済みユーザーの所有レコードにスコープされます。
package todo

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/model"
	"github.com/yourusername/gotodo/internal/store"
)

const (
	msgDatabaseError = "A Database Error Occurred"
	msgProvideText   = "Provide todo text"
)

type nameRequest struct {
	Name string `form:"name" json:"name"`
}

// ListHandler は GET /api/todos のハンドラーを返します。ToDoはID昇順で返します。
func ListHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		todos, err := repo.ListByOwner(c.Request.Context(), user.ID)
		if err != nil {
			respondStorageFault(c, "todo list failed", err)
			return
		}
		c.JSON(http.StatusOK, todos)
	}
}

// GetHandler は GET /api/todos/:id のハンドラーを返します。
func GetHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := parseID(c)
		if !ok {
			return
		}

		todo, err := repo.FindByID(c.Request.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo fetch failed", err)
			return
		}
		c.JSON(http.StatusOK, todo)
	}
}

// CreateHandler は POST /api/todos のハンドラーを返します。
func CreateHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)

		var req nameRequest
		_ = c.ShouldBind(&req)
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgProvideText})
			return
		}

		todo := &model.Todo{
			Name:   req.Name,
			UserID: user.ID,
		}
		if err := repo.Create(c.Request.Context(), todo); err != nil {
			respondStorageFault(c, "todo create failed", err)
			return
		}
		c.JSON(http.StatusOK, todo)
	}
}

// RenameHandler は PUT /api/todos/:id のハンドラーを返します。
func RenameHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req nameRequest
		_ = c.ShouldBind(&req)
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgProvideText})
			return
		}

		todo, err := repo.FindByID(c.Request.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo fetch failed", err)
			return
		}

		todo.Name = req.Name
		if err := repo.Update(c.Request.Context(), todo); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo update failed", err)
			return
		}
		c.JSON(http.StatusOK, todo)
	}
}

// ToggleHandler は PUT /api/todos/mark/:id のハンドラーを返します。
// 完了フラグを反転します（false→true→false）。
func ToggleHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := parseID(c)
		if !ok {
			return
		}

		todo, err := repo.FindByID(c.Request.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo fetch failed", err)
			return
		}

		todo.Complete = !todo.Complete
		if err := repo.Update(c.Request.Context(), todo); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo toggle failed", err)
			return
		}
		c.JSON(http.StatusOK, todo)
	}
}

// DeleteHandler は DELETE /api/todos/:id のハンドラーを返します。成功時は 204 を返します。
func DeleteHandler(repo store.TodoRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		id, ok := parseID(c)
		if !ok {
			return
		}

		if err := repo.Delete(c.Request.Context(), user.ID, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondNotFound(c, id)
				return
			}
			respondStorageFault(c, "todo delete failed", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// parseID は :id パラメータを解釈します。数値でないIDは存在しないIDと同じ扱い（404）です。
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Could not find todo with id: %s", raw)})
		return 0, false
	}
	return uint(id), true
}

func respondNotFound(c *gin.Context, id uint) {
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Could not find todo with id: %d", id)})
}

// respondStorageFault は内部エラーの詳細をログにのみ残し、固定メッセージを返します。
func respondStorageFault(c *gin.Context, msg string, err error) {
	log.Printf("%s (request %s, path %s): %v", msg, uuid.NewString(), c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgDatabaseError})
}
