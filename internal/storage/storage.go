// Package storage はSupabase Storage（オブジェクトストレージ）のREST APIクライアントを提供する。
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/profilehub/internal/remote"
)

const objectPath = "/storage/v1/object/"

// Client はSupabase StorageのAPIクライアント。
type Client struct {
	client *remote.Client
}

// NewClient はClientを生成する。
func NewClient(client *remote.Client) *Client {
	return &Client{client: client}
}

type uploadResponse struct {
	Key string `json:"Key"`
}

// Upload はオブジェクトをアップロードし、バケット内のパスを返す。
// 同じキーが既に存在する場合は上書きせずエラーを返す。
func (c *Client) Upload(ctx context.Context, accessToken, bucket, key, contentType string, r io.Reader) (string, error) {
	var resp uploadResponse
	err := c.client.Do(ctx, remote.Request{
		Op:          "storage.upload",
		Method:      http.MethodPost,
		Path:        objectPath + bucket + "/" + escapeKey(key),
		Bearer:      accessToken,
		Body:        r,
		ContentType: contentType,
		Header:      http.Header{"X-Upsert": {"false"}},
		Out:         &resp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return key, nil
}

// Remove は指定キーのオブジェクトを削除する。
func (c *Client) Remove(ctx context.Context, accessToken, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	err := c.client.Do(ctx, remote.Request{
		Op:     "storage.remove",
		Method: http.MethodDelete,
		Path:   objectPath + bucket,
		Bearer: accessToken,
		JSON:   map[string][]string{"prefixes": keys},
	})
	if err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}
	return nil
}

// PublicURL は公開バケット内オブジェクトのURLを返す。
func (c *Client) PublicURL(bucket, key string) string {
	return c.client.URL(objectPath+"public/"+bucket+"/"+escapeKey(key), nil)
}

// escapeKey はキーをセグメントごとにURLエスケープする。
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
