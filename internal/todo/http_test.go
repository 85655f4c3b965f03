package todo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/model"
	"github.com/yourusername/gotodo/internal/store"
)

type fakeTodoRepo struct {
	nextID uint
	todos  map[uint]model.Todo
	err    error
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{todos: make(map[uint]model.Todo)}
}

func (f *fakeTodoRepo) seed(owner uint, name string, complete bool) uint {
	f.nextID++
	f.todos[f.nextID] = model.Todo{ID: f.nextID, Name: name, Complete: complete, UserID: owner}
	return f.nextID
}

func (f *fakeTodoRepo) ListByOwner(_ context.Context, owner uint) ([]model.Todo, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := []model.Todo{}
	for _, t := range f.todos {
		if t.UserID == owner {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTodoRepo) FindByID(_ context.Context, owner, id uint) (*model.Todo, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.todos[id]
	if !ok || t.UserID != owner {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTodoRepo) Create(_ context.Context, todo *model.Todo) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	todo.ID = f.nextID
	f.todos[todo.ID] = *todo
	return nil
}

func (f *fakeTodoRepo) Update(_ context.Context, todo *model.Todo) error {
	if f.err != nil {
		return f.err
	}
	existing, ok := f.todos[todo.ID]
	if !ok || existing.UserID != todo.UserID {
		return store.ErrNotFound
	}
	f.todos[todo.ID] = *todo
	return nil
}

func (f *fakeTodoRepo) Delete(_ context.Context, owner, id uint) error {
	if f.err != nil {
		return f.err
	}
	t, ok := f.todos[id]
	if !ok || t.UserID != owner {
		return store.ErrNotFound
	}
	delete(f.todos, id)
	return nil
}

// asUser injects an authenticated user the way the login guard does.
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserKey, &model.User{ID: id, Email: "user@example.com"})
		c.Next()
	}
}

func newTestRouter(repo *fakeTodoRepo, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	api.Use(asUser(userID))
	{
		todos := api.Group("/todos")
		{
			todos.GET("", ListHandler(repo))
			todos.GET("/:id", GetHandler(repo))
			todos.POST("", CreateHandler(repo))
			todos.PUT("/mark/:id", ToggleHandler(repo))
			todos.PUT("/:id", RenameHandler(repo))
			todos.DELETE("/:id", DeleteHandler(repo))
		}
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var todo model.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todo); err != nil {
		t.Fatalf("decode todo: %v (body: %s)", err, rec.Body.String())
	}
	return todo
}

func TestListOrderedByID(t *testing.T) {
	repo := newFakeTodoRepo()
	repo.seed(1, "first", false)
	repo.seed(2, "foreign", false)
	repo.seed(1, "second", true)
	repo.seed(1, "third", false)
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var todos []model.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("len(todos) = %d, want 3", len(todos))
	}
	for i := 1; i < len(todos); i++ {
		if todos[i].ID <= todos[i-1].ID {
			t.Fatalf("todos not in ascending id order: %#v", todos)
		}
	}
	for _, todo := range todos {
		if todo.UserID != 1 {
			t.Fatalf("foreign todo leaked into list: %#v", todo)
		}
	}
}

func TestGetForeignTodoReturns404(t *testing.T) {
	repo := newFakeTodoRepo()
	id := repo.seed(2, "not yours", false)
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/todos/"+itoa(id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateEmptyNameReturns400(t *testing.T) {
	repo := newFakeTodoRepo()
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodPost, "/api/todos", map[string]string{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(repo.todos) != 0 {
		t.Fatalf("empty-name create persisted a record: %#v", repo.todos)
	}
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	repo := newFakeTodoRepo()
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodPost, "/api/todos", map[string]string{"name": "buy milk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	todo := decodeTodo(t, rec)
	if todo.ID == 0 {
		t.Fatal("created todo has no id")
	}
	if todo.Complete {
		t.Fatal("created todo should not be complete")
	}
	if todo.Name != "buy milk" {
		t.Fatalf("name = %q, want %q", todo.Name, "buy milk")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	repo := newFakeTodoRepo()
	id := repo.seed(1, "walk dog", false)
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodPut, "/api/todos/mark/"+itoa(id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first toggle status = %d, want 200", rec.Code)
	}
	if todo := decodeTodo(t, rec); !todo.Complete {
		t.Fatal("first toggle should mark complete")
	}

	rec = doJSON(t, router, http.MethodPut, "/api/todos/mark/"+itoa(id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle status = %d, want 200", rec.Code)
	}
	if todo := decodeTodo(t, rec); todo.Complete {
		t.Fatal("second toggle should restore the original value")
	}
}

func TestRenameValidatesAndScopes(t *testing.T) {
	repo := newFakeTodoRepo()
	own := repo.seed(1, "old name", false)
	foreign := repo.seed(2, "foreign", false)
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodPut, "/api/todos/"+itoa(own), map[string]string{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty name status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/todos/"+itoa(foreign), map[string]string{"name": "stolen"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign rename status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/todos/"+itoa(own), map[string]string{"name": "new name"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, want 200", rec.Code)
	}
	if todo := decodeTodo(t, rec); todo.Name != "new name" {
		t.Fatalf("name = %q, want %q", todo.Name, "new name")
	}
}

func TestDeleteTwice(t *testing.T) {
	repo := newFakeTodoRepo()
	id := repo.seed(1, "one shot", false)
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodDelete, "/api/todos/"+itoa(id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first delete status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("delete response should be empty, got %q", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/todos/"+itoa(id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestNonNumericIDBehavesAsMissing(t *testing.T) {
	repo := newFakeTodoRepo()
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/todos/abc", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStorageFaultHidesDetail(t *testing.T) {
	repo := newFakeTodoRepo()
	repo.err = errors.New("connection refused: secret-host:5432")
	router := newTestRouter(repo, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] != "A Database Error Occurred" {
		t.Fatalf("error = %q, want the fixed message", payload["error"])
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret-host")) {
		t.Fatal("storage error detail leaked to the client")
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
