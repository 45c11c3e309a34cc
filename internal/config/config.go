package config

import (
	"github.com/inkstone/scs/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Identity IdentityConfig `mapstructure:"identity"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainType        string `mapstructure:"chain_type"`        // 链类型 (ethereum, polygon, etc.)
	ChainId          int64  `mapstructure:"chain_id"`          // 链ID
	RpcUrl           string `mapstructure:"rpc_url"`           // RPC节点URL
	PrivateKey       string `mapstructure:"private_key"`       // 私钥
	RegistryContract string `mapstructure:"registry_contract"` // 内容登记合约地址
	TokenContract    string `mapstructure:"token_contract"`    // 剧本通证合约地址
	Confirmations    int    `mapstructure:"confirmations"`     // 确认区块数
	CallTimeout      int    `mapstructure:"call_timeout"`      // 单次链调用超时（秒）
}

// StorageConfig 内容存储配置
type StorageConfig struct {
	ApiUrl  string `mapstructure:"api_url"` // IPFS节点API地址
	Timeout int    `mapstructure:"timeout"` // 上传超时（秒）
}

// IdentityConfig 身份解析服务配置
type IdentityConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  int    `mapstructure:"timeout"`
}

// OracleConfig 评分服务配置
type OracleConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Enabled  bool   `mapstructure:"enabled"`
	Timeout  int    `mapstructure:"timeout"`
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/scs")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "scriptchain")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.chain_type", "ethereum")
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("chain.call_timeout", 15)
	viper.SetDefault("storage.api_url", "localhost:5001")
	viper.SetDefault("storage.timeout", 30)
	viper.SetDefault("identity.timeout", 5)
	viper.SetDefault("oracle.enabled", false)
	viper.SetDefault("oracle.timeout", 10)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
