// Package auth は登録・ログイン・ログアウトとセッションベースの認可ガードを提供します。
package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/gotodo/internal/model"
	"github.com/yourusername/gotodo/internal/store"
)

// セッションにはユーザーIDのみを保存し、ユーザーレコードはリクエストごとに
// リポジトリから引き直します（ハッシュ等の古い値をセッションに残さないため）。
const sessionKeyUserID = "user_id"

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
// 値は *model.User です。
const ContextUserKey = "auth.user"

var maxSessionLifetime = 12 * time.Hour

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

const (
	msgRequiredFields   = "Please submit all required fields"
	msgNoSuchUser       = "No user with that email"
	msgWrongPassword    = "Incorrect password. Please try again"
	msgDuplicateEmail   = "An account with that email already exists"
	msgTooManyAttempts  = "Too many login attempts. Please try again later"
	msgInternal         = "Something went wrong. Please try again"
	msgDatabaseError    = "A Database Error Occurred"
)

var errAnonymous = errors.New("no authenticated user in session")

// Manager は認証フローとガードをまとめた構造体です。
type Manager struct {
	users   store.UserRepository
	hasher  *Hasher
	limiter LoginLimiter
}

// NewManager は認証マネージャーを作成します。
func NewManager(users store.UserRepository, hasher *Hasher, limiter LoginLimiter) *Manager {
	return &Manager{
		users:   users,
		hasher:  hasher,
		limiter: limiter,
	}
}

type credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// ShowRegister は GET /register のハンドラーです。
func (m *Manager) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"error": nil})
}

// Register は POST /register のハンドラーです。
// パスワードをハッシュ化してユーザーを作成し、成功時は /login へリダイレクトします。
// メールの重複チェックは事前に行わず、ストレージの一意制約に任せます。
func (m *Manager) Register(c *gin.Context) {
	var req credentials
	// バインド失敗は必須項目欠落と同じ扱い
	_ = c.ShouldBind(&req)

	if req.Email == "" || req.Password == "" {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"error": msgRequiredFields})
		return
	}

	hash, err := m.hasher.Hash(req.Password)
	if err != nil {
		logFault(c, "password hash failed", err)
		c.HTML(http.StatusInternalServerError, "register.html", gin.H{"error": msgInternal})
		return
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := m.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.HTML(http.StatusBadRequest, "register.html", gin.H{"error": msgDuplicateEmail})
			return
		}
		logFault(c, "user create failed", err)
		c.HTML(http.StatusInternalServerError, "register.html", gin.H{"error": msgDatabaseError})
		return
	}

	c.Redirect(http.StatusFound, "/login")
}

// ShowLogin は GET /login のハンドラーです。
func (m *Manager) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"error": nil})
}

// Login は POST /login のハンドラーです。
// 認証失敗（ユーザー不在・パスワード不一致）はステータス 200 のままエラーメッセージ付きで
// ログイン画面を再描画します。成功時はセッションにユーザーIDを保存し、保存の完了を
// 確認してから / へリダイレクトします。
func (m *Manager) Login(c *gin.Context) {
	var req credentials
	_ = c.ShouldBind(&req)

	if req.Email == "" || req.Password == "" {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"error": msgRequiredFields})
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	retryAfter, err := m.limiter.CheckLock(ctx, ip)
	if err != nil {
		logFault(c, "login limiter check failed", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": msgInternal})
		return
	}
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		c.HTML(http.StatusTooManyRequests, "login.html", gin.H{"error": msgTooManyAttempts})
		return
	}

	user, err := m.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.recordFailure(c, ip)
			c.HTML(http.StatusOK, "login.html", gin.H{"error": msgNoSuchUser})
			return
		}
		logFault(c, "user lookup failed", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": msgDatabaseError})
		return
	}

	matched, err := m.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		// bcrypt の内部エラーは不一致と混同しない
		logFault(c, "password verify failed", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": msgInternal})
		return
	}
	if !matched {
		m.recordFailure(c, ip)
		c.HTML(http.StatusOK, "login.html", gin.H{"error": msgWrongPassword})
		return
	}

	if err := m.limiter.Reset(ctx, ip); err != nil {
		log.Printf("login limiter reset failed for %s: %v", ip, err)
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUserID, user.ID)
	// セッションの永続化が完了するまでログインは成立しない
	if err := session.Save(); err != nil {
		logFault(c, "session save failed", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": msgInternal})
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Logout は GET /logout のハンドラーです。未ログイン状態で呼ばれてもエラーにしません。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionKeyUserID)
	if err := session.Save(); err != nil {
		logFault(c, "session save failed", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": msgInternal})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// RequireLogin はAPIルート用のガードです。未認証リクエストは 401 JSON で拒否します。
// ブラウザ向けのリダイレクトはAPIクライアントには不適切なため行いません。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.sessionUser(c)
		if err != nil {
			if errors.Is(err, errAnonymous) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
				return
			}
			logFault(c, "session user lookup failed", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgDatabaseError})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireLoginView はビュールート用のガードです。未認証はログイン画面へリダイレクトします。
func (m *Manager) RequireLoginView() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.sessionUser(c)
		if err != nil {
			if errors.Is(err, errAnonymous) {
				c.Redirect(http.StatusFound, "/login")
				c.Abort()
				return
			}
			logFault(c, "session user lookup failed", err)
			c.String(http.StatusInternalServerError, msgDatabaseError)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser はガードがコンテキストに載せたログイン済みユーザーを返します。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// sessionUser はセッションのユーザーIDからユーザーレコードを引き直します。
// IDが無い、またはユーザーが既に存在しない場合は errAnonymous を返します。
func (m *Manager) sessionUser(c *gin.Context) (*model.User, error) {
	session := sessions.Default(c)
	id := readUserID(session.Get(sessionKeyUserID))
	if id == 0 {
		return nil, errAnonymous
	}

	user, err := m.users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// 削除済みユーザーのセッションは破棄する
			session.Delete(sessionKeyUserID)
			_ = session.Save()
			return nil, errAnonymous
		}
		return nil, err
	}
	return user, nil
}

func (m *Manager) recordFailure(c *gin.Context, ip string) {
	if _, err := m.limiter.RecordFailure(c.Request.Context(), ip); err != nil {
		log.Printf("login limiter record failed for %s: %v", ip, err)
	}
}

// logFault はストレージ等の内部エラーをリクエストIDつきで記録します。
// 詳細はログのみに残し、レスポンスには含めません。
func logFault(c *gin.Context, msg string, err error) {
	log.Printf("%s (request %s, path %s): %v", msg, uuid.NewString(), c.FullPath(), err)
}

func readUserID(v interface{}) uint {
	switch id := v.(type) {
	case uint:
		return id
	case uint64:
		return uint(id)
	case int:
		if id < 0 {
			return 0
		}
		return uint(id)
	case int64:
		if id < 0 {
			return 0
		}
		return uint(id)
	case float64:
		if id < 0 {
			return 0
		}
		return uint(id)
	default:
		return 0
	}
}
