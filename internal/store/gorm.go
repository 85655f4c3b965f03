package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/gotodo/internal/model"
)

// GormUserRepository は UserRepository の gorm 実装です。
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository は GormUserRepository を作成します。
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create はユーザーを作成します。メールの一意制約違反は ErrDuplicateEmail になります。
func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// FindByEmail はメールアドレス完全一致でユーザーを検索します。
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByID はIDでユーザーを検索します。
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GormTodoRepository は TodoRepository の gorm 実装です。
type GormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository は GormTodoRepository を作成します。
func NewGormTodoRepository(db *gorm.DB) *GormTodoRepository {
	return &GormTodoRepository{db: db}
}

// ListByOwner は owner の所有するToDoをID昇順で返します。
func (r *GormTodoRepository) ListByOwner(ctx context.Context, owner uint) ([]model.Todo, error) {
	todos := []model.Todo{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("id ASC").
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// FindByID は owner の所有するToDoをIDで検索します。
// 他ユーザーの所有分は存在しないものとして ErrNotFound を返します。
func (r *GormTodoRepository) FindByID(ctx context.Context, owner, id uint) (*model.Todo, error) {
	var todo model.Todo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &todo, nil
}

// Create はToDoを作成します。UserID は呼び出し側で設定済みである必要があります。
func (r *GormTodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

// Update はToDoの全フィールドを保存します。所有者スコープはID＋UserIDの条件で強制します。
func (r *GormTodoRepository) Update(ctx context.Context, todo *model.Todo) error {
	result := r.db.WithContext(ctx).
		Model(&model.Todo{}).
		Where("id = ? AND user_id = ?", todo.ID, todo.UserID).
		Updates(map[string]any{
			"name":     todo.Name,
			"complete": todo.Complete,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete は owner の所有するToDoを削除します。対象が無ければ ErrNotFound を返します。
func (r *GormTodoRepository) Delete(ctx context.Context, owner, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		Delete(&model.Todo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
