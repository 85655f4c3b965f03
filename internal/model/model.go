// Package model はデータベースに永続化するエンティティを定義します。
package model

import "time"

// User は登録済みユーザーを表します。
// PasswordHash は bcrypt ハッシュであり、JSONには決して含めません。
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Todo は1ユーザーに属するToDo項目を表します。
// すべての読み書きは UserID でスコープされます。
type Todo struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Complete  bool      `json:"complete" gorm:"not null;default:false"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
