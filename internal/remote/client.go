// Package remote はSupabase系REST API（Auth、Storage）呼び出しの共通処理を提供する。
// 認証ヘッダーの付与、エラーペイロードのRemoteErrorへの変換、メトリクス記録を担う。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/profilehub/internal/metrics"
	"github.com/hitoshi/profilehub/internal/model"
)

// maxErrorBody はエラーレスポンスとして読み込む最大バイト数。
const maxErrorBody = 64 * 1024

// Config はリモートクライアントの設定。
type Config struct {
	BaseURL    string // 例: https://xxxx.supabase.co
	APIKey     string // anonキー
	Service    string // メトリクスのラベル（"auth", "storage"）
	HTTPClient *http.Client
	Metrics    metrics.RemoteCallRecorder
}

// Client はSupabase系APIへのHTTP呼び出しを行う。
type Client struct {
	config Config
}

// NewClient はClientを生成する。
func NewClient(config Config) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop{}
	}
	return &Client{config: config}
}

// Request は1回のAPI呼び出しを表す。
type Request struct {
	Op          string // 操作名（メトリクス・エラー用）
	Method      string
	Path        string // BaseURLからの相対パス
	Query       url.Values
	Bearer      string    // ユーザーのアクセストークン。空の場合はAPIキーを使う
	JSON        any       // JSONボディ。Bodyと排他
	Body        io.Reader // 生ボディ
	ContentType string    // Body使用時のContent-Type
	Header      http.Header
	Out         any // 成功時にJSONをデコードする先。nilの場合は読み捨てる
}

// URL はリクエストの完全なURLを組み立てる。
func (c *Client) URL(path string, query url.Values) string {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do はリクエストを実行する。
// 2xx以外のレスポンスは*model.RemoteErrorとして返す。
func (c *Client) Do(ctx context.Context, req Request) (err error) {
	start := time.Now()
	defer func() {
		c.config.Metrics.RecordRemoteCall(c.config.Service, req.Op, err == nil, time.Since(start))
	}()

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", req.Op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Path, req.Query), body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", req.Op, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("apikey", c.config.APIKey)
	bearer := req.Bearer
	if bearer == "" {
		bearer = c.config.APIKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", req.Op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.NewRemoteError(req.Op, resp.StatusCode, errorMessage(raw))
	}

	if req.Out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(req.Out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s response: %w", req.Op, err)
	}
	return nil
}

// errorBody はAuth/Storageが返すエラーペイロードの和集合。
type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

// errorMessage はエラーペイロードからユーザーに見せるメッセージを取り出す。
// JSONでない場合は本文をそのまま使う。
func errorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}
