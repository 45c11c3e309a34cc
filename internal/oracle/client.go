package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkstone/scs/internal/config"
)

// Client 剧本评分能力（由外部评分服务提供，尽力而为）
type Client interface {
	Score(ctx context.Context, title string, content []byte) (float64, error)
}

// HTTPClient 调用评分服务
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient 创建评分客户端；未启用时返回nil
func NewHTTPClient(cfg config.OracleConfig) *HTTPClient {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Score 对剧本内容评分
func (c *HTTPClient) Score(ctx context.Context, title string, content []byte) (float64, error) {
	payload, err := json.Marshal(map[string]string{
		"title":   title,
		"content": base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/score", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring service returned status %d", resp.StatusCode)
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode score response: %w", err)
	}

	return result.Score, nil
}
