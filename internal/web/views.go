// Package web はログイン後のHTMLビューを提供します。
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/auth"
)

// Home は GET / のハンドラーです。ログイン済みユーザーのホーム画面を描画します。
// ToDo一覧は画面側が /api/todos から取得します。
func Home(c *gin.Context) {
	user := auth.CurrentUser(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"email": user.Email,
	})
}
