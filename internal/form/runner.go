package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/profilehub/internal/metrics"
	"github.com/hitoshi/profilehub/internal/model"
)

// State はフォーム送信の状態。
type State int

// 送信状態。Idle → Submitting → (Success | Failed) → Idle と遷移する。
const (
	Idle State = iota
	Submitting
	Success
	Failed
)

// String は状態名を返す。メトリクスのラベルにも使う。
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// エラーメッセージ
const (
	// ErrorPrefix は失敗時のメッセージの先頭に付ける文言。
	ErrorPrefix = "エラーが発生しました。"
	// MsgInFlight は同じフォームの送信が処理中の場合のメッセージ。
	MsgInFlight = "送信処理中です。しばらくお待ちください。"
)

// ErrInFlight は同じフォームの送信が処理中であることを表す。
var ErrInFlight = errors.New("submission already in flight")

// Submission は1回のフォーム送信を表す。
type Submission struct {
	Key            string // 送信者を識別するキー（ユーザーIDなど）
	Form           string // フォーム名（"signup", "profile"等）
	SuccessMessage string
}

// Outcome はフォーム送信の結果。
type Outcome struct {
	State   State
	Message string
	Err     error
}

// OK は送信が成功したかどうかを返す。
func (o Outcome) OK() bool {
	return o.State == Success
}

// Runner はフォーム送信を実行する。
// 同じ送信者・同じフォームの同時送信を1件に制限し、リトライは行わない。
type Runner struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	metrics  metrics.FormRecorder
}

// NewRunner はRunnerを生成する。
func NewRunner(recorder metrics.FormRecorder) *Runner {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Runner{
		inFlight: make(map[string]struct{}),
		metrics:  recorder,
	}
}

// Run はfnを実行し、結果をOutcomeに変換する。
// 同じ送信が処理中の場合はfnを呼ばずにFailedを返す。
// fnのpanicは回復してFailedとして扱う。
func (r *Runner) Run(ctx context.Context, sub Submission, fn func(ctx context.Context) error) (outcome Outcome) {
	flightKey := sub.Key + ":" + sub.Form
	if !r.acquire(flightKey) {
		r.metrics.RecordFormOutcome(sub.Form, "rejected")
		return Outcome{State: Failed, Message: MsgInFlight, Err: ErrInFlight}
	}
	defer r.release(flightKey)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("unexpected error: %v", rec)
			slog.Error("panic in form submission",
				slog.String("form", sub.Form),
				slog.Any("panic", rec),
			)
			outcome = failed(err)
		}
		r.metrics.RecordFormOutcome(sub.Form, outcome.State.String())
	}()

	if err := fn(ctx); err != nil {
		slog.Warn("form submission failed",
			slog.String("form", sub.Form),
			slog.String("error", err.Error()),
		)
		return failed(err)
	}
	return Outcome{State: Success, Message: sub.SuccessMessage}
}

// StateOf は送信者・フォームの現在の状態を返す。処理中の場合はSubmittingになる。
func (r *Runner) StateOf(key, form string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[key+":"+form]; ok {
		return Submitting
	}
	return Idle
}

func (r *Runner) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[key]; ok {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Runner) release(key string) {
	r.mu.Lock()
	delete(r.inFlight, key)
	r.mu.Unlock()
}

// failed はエラーをFailedのOutcomeに変換する。
// 外部サービスのエラーはサービスが返したメッセージを表示する。
func failed(err error) Outcome {
	return Outcome{State: Failed, Message: ErrorMessage(err), Err: err}
}

// ErrorMessage はエラーを画面表示用のメッセージに変換する。
func ErrorMessage(err error) string {
	var remoteErr *model.RemoteError
	if errors.As(err, &remoteErr) {
		return ErrorPrefix + remoteErr.Message
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return ErrorPrefix + apiErr.Message
	}
	return ErrorPrefix + err.Error()
}
