package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/repository"
	"github.com/hitoshi/profilehub/internal/security"
)

// AvatarStorage はアバター画像の保存先のインターフェース。
type AvatarStorage interface {
	Upload(ctx context.Context, accessToken, bucket, key, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, accessToken, bucket string, keys []string) error
	PublicURL(bucket, key string) string
}

// EditInput はプロフィール編集フォームの入力。
// Avatarがnilの場合はアバターを変更しない。
type EditInput struct {
	Name      string
	Introduce string
	Avatar    *model.Upload
}

// EditService はプロフィール編集のビジネスロジックを提供する。
type EditService struct {
	repo      repository.ProfileRepository
	storage   AvatarStorage
	sanitizer security.TextSanitizer
	bucket    string
}

// NewEditService はEditServiceを生成する。
func NewEditService(repo repository.ProfileRepository, storage AvatarStorage, sanitizer security.TextSanitizer, bucket string) *EditService {
	return &EditService{
		repo:      repo,
		storage:   storage,
		sanitizer: sanitizer,
		bucket:    bucket,
	}
}

// Update はプロフィールを更新する。
// 新しいアバターがある場合は先にアップロードし、失敗した場合はDBを更新せずに中断する。
// 旧アバターの削除はベストエフォートで行い、失敗しても更新は続行する。
// 名前・自己紹介・アバターURLは1回のUPDATEでまとめて保存する。
func (s *EditService) Update(ctx context.Context, session *model.Session, currentAvatarURL string, input EditInput) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}

	avatarURL := currentAvatarURL
	if input.Avatar != nil {
		key := session.UserID + "/" + uuid.New().String()
		stored, err := s.storage.Upload(ctx, session.AccessToken, s.bucket, key, input.Avatar.ContentType, bytes.NewReader(input.Avatar.Data))
		if err != nil {
			return fmt.Errorf("failed to upload avatar: %w", err)
		}

		if oldKey := avatarKey(session.UserID, currentAvatarURL); oldKey != "" {
			if err := s.storage.Remove(ctx, session.AccessToken, s.bucket, []string{oldKey}); err != nil {
				slog.Warn("failed to remove old avatar",
					slog.String("user_id", session.UserID),
					slog.String("key", oldKey),
					slog.String("error", err.Error()),
				)
			}
		}

		avatarURL = s.storage.PublicURL(s.bucket, stored)
	}

	update := model.ProfileUpdate{
		Name:      input.Name,
		Introduce: s.sanitizer.Sanitize(input.Introduce),
		AvatarURL: avatarURL,
	}
	if err := s.repo.UpdateFields(ctx, session.UserID, update); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated",
		slog.String("user_id", session.UserID),
		slog.Bool("avatar_changed", input.Avatar != nil),
	)
	return nil
}

// avatarKey は公開URLの最後のパス要素からストレージ上のキーを復元する。
// キーは"<ユーザーID>/<ファイル名>"の形式。
func avatarKey(userID, avatarURL string) string {
	if avatarURL == "" {
		return ""
	}
	u, err := url.Parse(avatarURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return userID + "/" + name
}
