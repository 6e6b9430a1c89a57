// Package viewstate はリクエスト単位で画面に表示するユーザー情報を保持する。
package viewstate

import (
	"context"
	"sync"

	"github.com/hitoshi/profilehub/internal/model"
)

// ViewModel は画面表示用のユーザー情報。
// 未ログインの場合は全フィールドが空文字列になる。
type ViewModel struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Introduce string `json:"introduce"`
	AvatarURL string `json:"avatar_url"`
}

// Store はViewModelを保持する。
// 更新はHydrateのみで行い、常に全フィールドを置き換える。
type Store struct {
	mu    sync.RWMutex
	state ViewModel
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Hydrate はセッションとプロフィールからViewModelを作り直す。
// メールアドレスはIdP側（セッション）の値を使う。
func (s *Store) Hydrate(session *model.Session, profile *model.Profile) {
	var next ViewModel
	if session != nil {
		next.ID = session.UserID
		next.Email = session.Email
		if profile != nil {
			next.Name = profile.Name
			next.Introduce = profile.Introduce
			next.AvatarURL = profile.AvatarURL
		}
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Read は現在のViewModelを返す。
func (s *Store) Read() ViewModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

type contextKey struct{}

// WithStore はStoreをコンテキストに格納する。
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, store)
}

// FromContext はコンテキストからStoreを取り出す。
// 格納されていない場合は空のStoreを返す。
func FromContext(ctx context.Context) *Store {
	if store, ok := ctx.Value(contextKey{}).(*Store); ok && store != nil {
		return store
	}
	return NewStore()
}
