// Package store は型付きリポジトリとその gorm 実装を提供します。
package store

import (
	"context"
	"errors"

	"github.com/yourusername/gotodo/internal/model"
)

var (
	// ErrNotFound はレコードが存在しない、または呼び出し元の所有でないことを示します。
	// 他ユーザーのレコードと不存在のレコードは意図的に区別しません。
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail はメールアドレスの一意制約違反を示します。
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository はユーザーレコードの永続化操作を定義します。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// TodoRepository はToDoレコードの永続化操作を定義します。
// すべてのメソッドは owner（呼び出し元ユーザーのID）でスコープされます。
type TodoRepository interface {
	ListByOwner(ctx context.Context, owner uint) ([]model.Todo, error)
	FindByID(ctx context.Context, owner, id uint) (*model.Todo, error)
	Create(ctx context.Context, todo *model.Todo) error
	Update(ctx context.Context, todo *model.Todo) error
	Delete(ctx context.Context, owner, id uint) error
}
