package store

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yourusername/gotodo/internal/model"
)

// Open は接続文字列からデータベース接続を開きます。
// postgres:// / postgresql:// で始まる場合はPostgres、それ以外はSQLiteファイルとして扱います。
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	// TranslateError により一意制約違反を gorm.ErrDuplicatedKey として受け取る
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// AutoMigrate はアプリケーションのテーブルを作成・更新します。
// セッションテーブルはセッションストア側が管理するため含めません。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Todo{})
}
