package chain

import (
	"sync"

	"github.com/inkstone/scs/internal/config"
	"github.com/inkstone/scs/internal/logger"
)

// 链客户端是进程级共享资源：首次使用时初始化，所有请求复用，
// 显式 Reset 后重新初始化。不在服务启动时拨号，链不可用不阻塞启动。
var (
	mu     sync.Mutex
	shared *Client
)

// Get 获取共享链客户端，必要时初始化
func Get(cfg config.ChainConfig) (*Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if shared != nil {
		return shared, nil
	}

	client, err := Init(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Chain client initialized (type: %s, id: %d)", cfg.ChainType, cfg.ChainId)
	shared = client
	return shared, nil
}

// Reset 关闭并丢弃共享客户端，下次 Get 时重新初始化
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if shared != nil {
		shared.Close()
		shared = nil
		logger.Info("Chain client reset")
	}
}
