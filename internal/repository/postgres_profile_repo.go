package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/profilehub/internal/model"
)

const profileColumns = `id, email, name, introduce, avatar_url, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	return profile, nil
}

// UpdateEmail はプロフィールのメールアドレスを更新し、更新後の行を返す。
// 該当行が存在しない場合はnilを返す。
func (r *PostgresProfileRepo) UpdateEmail(ctx context.Context, id, email string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE profiles SET email = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, email,
	)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile email: %w", err)
	}

	return profile, nil
}

// UpdateFields は名前・自己紹介・アバターURLを1回のUPDATEで更新する。
// AvatarURLが空文字列の場合はNULLを保存する。
func (r *PostgresProfileRepo) UpdateFields(ctx context.Context, id string, update model.ProfileUpdate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET name = $2, introduce = $3, avatar_url = $4, updated_at = now()
		 WHERE id = $1`,
		id, update.Name, update.Introduce, nullString(update.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewProfileNotFoundError()
	}

	return nil
}

// CreateIfAbsent はプロフィールが存在しない場合のみ作成する。
func (r *PostgresProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, name, introduce, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Email, profile.Name, profile.Introduce, nullString(profile.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// scanProfile は1行をmodel.Profileに読み込む。
func scanProfile(row rowScanner) (*model.Profile, error) {
	profile := &model.Profile{}
	var avatarURL sql.NullString

	err := row.Scan(
		&profile.ID, &profile.Email, &profile.Name, &profile.Introduce,
		&avatarURL, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.AvatarURL = avatarURL.String
	return profile, nil
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
