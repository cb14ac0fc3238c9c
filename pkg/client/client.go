package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config 客户端配置
type Config struct {
	ApiKey    string `json:"api_key"`
	ServerURL string `json:"server_url"`
	Timeout   time.Duration
}

// StatusError 服务端返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client 监控服务客户端
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Version 获取服务版本
func (c *Client) Version(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ListProfiles 获取所有设备（需要读取密钥）
func (c *Client) ListProfiles(ctx context.Context, readKey string) ([]Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/profiles", map[string]string{"x-read-key": readKey}, nil)
	if err != nil {
		return nil, err
	}
	var profiles []Profile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

// RegisterProfile 注册设备
func (c *Client) RegisterProfile(ctx context.Context, req ProfileRequest) (*Profile, error) {
	body, err := c.do(ctx, http.MethodPost, "/profiles", nil, req)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// PostSnapshot 上报快照，doc 为任意可序列化为快照 JSON 的值
func (c *Client) PostSnapshot(ctx context.Context, profileID int64, profileKey string, doc any) (*SnapshotResult, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/system-info/%d", profileID),
		map[string]string{"x-profile-key": profileKey}, doc)
	if err != nil {
		return nil, err
	}
	var result SnapshotResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode snapshot result: %w", err)
	}
	return &result, nil
}

// PostErrorLog 上报错误日志
func (c *Client) PostErrorLog(ctx context.Context, profileID int64, profileKey string, message string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/error/%d", profileID),
		map[string]string{"x-profile-key": profileKey}, errorLogRequest{Message: message})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.ApiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
