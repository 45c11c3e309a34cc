package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkstone/scs/internal/config"
)

// User 已解析的调用方身份
type User struct {
	Id            string `json:"id"`
	Role          string `json:"role"` // producer, writer
	WalletAddress string `json:"wallet_address"`
}

// Resolver 身份解析能力（由外部身份服务提供）
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*User, error)
}

// HTTPResolver 调用身份服务解析凭证
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver 创建身份解析客户端
func NewHTTPResolver(cfg config.IdentityConfig) *HTTPResolver {
	return &HTTPResolver{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Resolve 解析凭证对应的用户
func (r *HTTPResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	body, err := json.Marshal(map[string]string{"credential": credential})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service rejected credential: status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}
	if user.Id == "" {
		return nil, fmt.Errorf("identity service returned empty user id")
	}

	return &user, nil
}
