package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/inkstone/scs/internal/config"
	"github.com/ipfs/go-cid"
	shell "github.com/ipfs/go-ipfs-api"
)

// Client 内容寻址存储客户端（IPFS）
type Client struct {
	sh *shell.Shell
}

// New 创建内容存储客户端
func New(cfg config.StorageConfig) *Client {
	sh := shell.NewShell(cfg.ApiUrl)
	sh.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	return &Client{sh: sh}
}

// Store 写入内容并返回内容标识
// 内容不可变：同样的字节永远得到同样的CID
func (c *Client) Store(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("content is empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref, err := c.sh.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("failed to store content: %w", err)
	}

	// 校验节点返回的标识
	if _, err := cid.Decode(ref); err != nil {
		return "", fmt.Errorf("storage node returned invalid content ref %q: %w", ref, err)
	}

	return ref, nil
}

// Fetch 按内容标识读取内容
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if _, err := cid.Decode(ref); err != nil {
		return nil, fmt.Errorf("invalid content ref %q: %w", ref, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := c.sh.Cat(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content %s: %w", ref, err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("failed to read content %s: %w", ref, err)
	}
	return buf.Bytes(), nil
}
