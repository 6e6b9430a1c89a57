// Package profile はプロフィールの整合処理と編集フローを提供する。
package profile

import (
	"context"
	"log/slog"

	"github.com/hitoshi/profilehub/internal/metrics"
	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/repository"
)

// 整合処理の結果ラベル
const (
	ReconcileSkipped = "skipped"
	ReconcileNoop    = "noop"
	ReconcileUpdated = "updated"
	ReconcileFailed  = "failed"
)

// Reconciler はprofilesのメールアドレスをIdP側のメールアドレスに追従させる。
// メールアドレス変更の確認後、最初のリクエストでprofilesの行が更新される。
type Reconciler struct {
	repo    repository.ProfileRepository
	metrics metrics.ReconcileRecorder
}

// NewReconciler はReconcilerを生成する。
func NewReconciler(repo repository.ProfileRepository, recorder metrics.ReconcileRecorder) *Reconciler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Reconciler{repo: repo, metrics: recorder}
}

// Reconcile はセッションとプロフィールのメールアドレスを比較し、異なる場合のみ1回更新する。
// 戻り値は以降の描画に使うプロフィール。
// 更新に失敗した場合は元のプロフィールを返し、エラーはログに記録するだけにとどめる。
func (r *Reconciler) Reconcile(ctx context.Context, session *model.Session, profile *model.Profile) *model.Profile {
	if session == nil || profile == nil {
		r.metrics.RecordReconcile(ReconcileSkipped)
		return profile
	}

	if session.Email == profile.Email {
		r.metrics.RecordReconcile(ReconcileNoop)
		return profile
	}

	updated, err := r.repo.UpdateEmail(ctx, profile.ID, session.Email)
	if err != nil {
		slog.Warn("failed to reconcile profile email",
			slog.String("user_id", profile.ID),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordReconcile(ReconcileFailed)
		return profile
	}
	if updated == nil {
		slog.Warn("profile disappeared during email reconcile", slog.String("user_id", profile.ID))
		r.metrics.RecordReconcile(ReconcileFailed)
		return profile
	}

	slog.Info("profile email reconciled", slog.String("user_id", profile.ID))
	r.metrics.RecordReconcile(ReconcileUpdated)
	return updated
}
