// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/profilehub/internal/model"
)

// ProfileRepository はprofilesテーブルの永続化インターフェース。
// 1行はユーザーIDで一意に特定される。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// UpdateEmail はプロフィールのメールアドレスを更新し、更新後の行を返す。
	// 該当行が存在しない場合はnilを返す。
	UpdateEmail(ctx context.Context, id, email string) (*model.Profile, error)

	// UpdateFields は名前・自己紹介・アバターURLを1回のUPDATEで更新する。
	UpdateFields(ctx context.Context, id string, update model.ProfileUpdate) error

	// CreateIfAbsent はプロフィールが存在しない場合のみ作成する。
	// 既に存在する場合は何もしない。
	CreateIfAbsent(ctx context.Context, profile *model.Profile) error
}
