package profile

import (
	"context"
	"io"

	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/repository"
)

// --- モック定義 ---

type mockProfileRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.Profile, error)
	updateEmailFn  func(ctx context.Context, id, email string) (*model.Profile, error)
	updateFieldsFn func(ctx context.Context, id string, update model.ProfileUpdate) error

	updateEmailCalls  int
	updateFieldsCalls int
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) UpdateEmail(ctx context.Context, id, email string) (*model.Profile, error) {
	m.updateEmailCalls++
	if m.updateEmailFn != nil {
		return m.updateEmailFn(ctx, id, email)
	}
	return nil, nil
}

func (m *mockProfileRepo) UpdateFields(ctx context.Context, id string, update model.ProfileUpdate) error {
	m.updateFieldsCalls++
	if m.updateFieldsFn != nil {
		return m.updateFieldsFn(ctx, id, update)
	}
	return nil
}

func (m *mockProfileRepo) CreateIfAbsent(_ context.Context, _ *model.Profile) error {
	return nil
}

type mockStorage struct {
	uploadFn func(ctx context.Context, accessToken, bucket, key, contentType string, r io.Reader) (string, error)
	removeFn func(ctx context.Context, accessToken, bucket string, keys []string) error

	uploadCalls int
	removeCalls int
}

func (m *mockStorage) Upload(ctx context.Context, accessToken, bucket, key, contentType string, r io.Reader) (string, error) {
	m.uploadCalls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, accessToken, bucket, key, contentType, r)
	}
	return key, nil
}

func (m *mockStorage) Remove(ctx context.Context, accessToken, bucket string, keys []string) error {
	m.removeCalls++
	if m.removeFn != nil {
		return m.removeFn(ctx, accessToken, bucket, keys)
	}
	return nil
}

func (m *mockStorage) PublicURL(bucket, key string) string {
	return "https://storage.example.com/storage/v1/object/public/" + bucket + "/" + key
}

type mockReconcileRecorder struct {
	results []string
}

func (m *mockReconcileRecorder) RecordReconcile(result string) {
	m.results = append(m.results, result)
}

// --- compile-time interface checks ---
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ AvatarStorage = (*mockStorage)(nil)
