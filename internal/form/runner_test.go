package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hitoshi/profilehub/internal/model"
)

type mockFormRecorder struct {
	mu      sync.Mutex
	results []string
}

func (m *mockFormRecorder) RecordFormOutcome(form, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, form+":"+result)
}

func TestRun_Success(t *testing.T) {
	rec := &mockFormRecorder{}
	r := NewRunner(rec)

	outcome := r.Run(context.Background(), Submission{Key: "u1", Form: "password", SuccessMessage: "パスワードは正常に更新されました。"}, func(context.Context) error {
		return nil
	})

	if !outcome.OK() {
		t.Fatalf("State = %v, want success", outcome.State)
	}
	if outcome.Message != "パスワードは正常に更新されました。" {
		t.Errorf("Message = %q", outcome.Message)
	}
	if len(rec.results) != 1 || rec.results[0] != "password:success" {
		t.Errorf("recorded = %v", rec.results)
	}
}

func TestRun_RemoteError_UsesServiceMessage(t *testing.T) {
	r := NewRunner(nil)

	outcome := r.Run(context.Background(), Submission{Key: "u1", Form: "email"}, func(context.Context) error {
		return errors.Join(errors.New("context"), model.NewRemoteError("auth.update_user", 422, "Email rate limit exceeded"))
	})

	if outcome.State != Failed {
		t.Fatalf("State = %v, want failed", outcome.State)
	}
	if outcome.Message != "エラーが発生しました。Email rate limit exceeded" {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestRun_PlainError(t *testing.T) {
	r := NewRunner(nil)

	outcome := r.Run(context.Background(), Submission{Key: "u1", Form: "email"}, func(context.Context) error {
		return errors.New("boom")
	})

	if outcome.Message != "エラーが発生しました。boom" {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestRun_Panic_IsRecoveredAsFailure(t *testing.T) {
	rec := &mockFormRecorder{}
	r := NewRunner(rec)

	outcome := r.Run(context.Background(), Submission{Key: "u1", Form: "profile"}, func(context.Context) error {
		panic("nil map")
	})

	if outcome.State != Failed {
		t.Fatalf("State = %v, want failed", outcome.State)
	}
	if outcome.Message != "エラーが発生しました。unexpected error: nil map" {
		t.Errorf("Message = %q", outcome.Message)
	}
	if r.StateOf("u1", "profile") != Idle {
		t.Error("in-flight slot should be released after panic")
	}
	if len(rec.results) != 1 || rec.results[0] != "profile:failed" {
		t.Errorf("recorded = %v", rec.results)
	}
}

func TestRun_ConcurrentSameForm_SecondRejectedWithoutCall(t *testing.T) {
	r := NewRunner(nil)
	sub := Submission{Key: "u1", Form: "profile"}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan Outcome)

	go func() {
		done <- r.Run(context.Background(), sub, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if got := r.StateOf("u1", "profile"); got != Submitting {
		t.Errorf("StateOf() = %v, want submitting", got)
	}

	calls := 0
	second := r.Run(context.Background(), sub, func(context.Context) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Errorf("second submission should not run, calls = %d", calls)
	}
	if second.State != Failed || !errors.Is(second.Err, ErrInFlight) {
		t.Errorf("second outcome = %+v, want in-flight rejection", second)
	}

	close(release)
	if first := <-done; !first.OK() {
		t.Errorf("first outcome = %+v", first)
	}

	// 完了後は再送信できる
	third := r.Run(context.Background(), sub, func(context.Context) error { return nil })
	if !third.OK() {
		t.Errorf("third outcome = %+v", third)
	}
}

func TestRun_DifferentKeysRunIndependently(t *testing.T) {
	r := NewRunner(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	go r.Run(context.Background(), Submission{Key: "u1", Form: "profile"}, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	defer close(release)

	if got := r.Run(context.Background(), Submission{Key: "u2", Form: "profile"}, func(context.Context) error { return nil }); !got.OK() {
		t.Errorf("other user should not be blocked: %+v", got)
	}
	if got := r.Run(context.Background(), Submission{Key: "u1", Form: "password"}, func(context.Context) error { return nil }); !got.OK() {
		t.Errorf("other form should not be blocked: %+v", got)
	}
}

func TestState_String(t *testing.T) {
	want := map[State]string{Idle: "idle", Submitting: "submitting", Success: "success", Failed: "failed"}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), name)
		}
	}
}
