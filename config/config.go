package config

import (
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// Monitor 代币发现与同步配置
type Monitor struct {
	BoostsURL     string        `toml:"boosts_url"`      // boost 列表接口
	PairsURL      string        `toml:"pairs_url"`       // 代币详情接口前缀（拼接地址）
	HunterTimeout time.Duration `toml:"hunter_timeout"`  // 两次 tick 之间的间隔（从 tick 结束计时）
	FetchTimeout  time.Duration `toml:"fetch_timeout"`   // 单次外部请求超时
	Chains        []string      `toml:"chains"`          // 跟踪的链
	DexID         string        `toml:"dex_id"`          // 交易对所属 DEX
	PumpOnly      bool          `toml:"pump_only"`       // 仅接受 pump 后缀地址
	MinBoostAlert float64       `toml:"min_boost_alert"` // totalAmount 达到该值时输出提示日志
	MaxWorkers    int           `toml:"max_workers"`     // 单个 tick 的并发处理数
	TokenMaxAge   time.Duration `toml:"token_max_age"`   // 超过该时长未 boost 的代币被清理
}

// Pin 置顶支付配置
type Pin struct {
	RPCURL       string             `toml:"rpc_url"`       // Solana JSON-RPC 地址
	PollInterval time.Duration      `toml:"poll_interval"` // 支付轮询间隔
	OrderExpiry  time.Duration      `toml:"order_expiry"`  // 订单有效期
	Tolerance    float64            `toml:"tolerance"`     // 余额比对容差（SOL）
	MaxPinned    int                `toml:"max_pinned"`    // 同时置顶的代币上限
	PriceTiers   map[string]float64 `toml:"price_tiers"`   // 小时数 -> 价格（SOL）
}

type HTTP struct {
	Addr             string   `toml:"addr"`
	HealthServerAddr string   `toml:"health_server_addr"`
	CORSOrigins      []string `toml:"cors_origins"`
}

type MySQL struct {
	DSN                string   `toml:"dsn"`
	SlaveAddr          []string `toml:"slave_addr"`
	MaxIdleConnections int      `toml:"max_idle_connections"`
	MaxOpenConnections int      `toml:"max_open_connections"`
	SetConnMaxLifetime int      `toml:"set_conn_max_lifetime"`
	SetConnMaxIdleTime int      `toml:"set_conn_max_idle_time"`
	ProxyEnabled       bool     `toml:"proxy_enabled"`
	ProxyAddr          string   `toml:"proxy_addr"`
}

type NATS struct {
	Endpoint string `toml:"endpoint"` // 为空则不启用 NATS 镜像
}

type Logger struct {
	Level      string `toml:"level"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
	Console    bool   `toml:"console"`
}

type Config struct {
	Monitor Monitor `toml:"monitor"`
	Pin     Pin     `toml:"pin"`
	HTTP    HTTP    `toml:"http"`
	MySQL   MySQL   `toml:"mysql"`
	NATS    NATS    `toml:"nats"`
	Logger  Logger  `toml:"log"`
}

var (
	cfg         *Config
	cfgPath     string
	cfgLock     sync.RWMutex
	lastModTime time.Time
	stopChan    chan struct{}
)

func Default() *Config {
	return &Config{
		Monitor: Monitor{
			BoostsURL:     "https://api.dexscreener.com/token-boosts/latest/v1",
			PairsURL:      "https://api.dexscreener.com/token-pairs/v1/solana",
			HunterTimeout: 5 * time.Second,
			FetchTimeout:  10 * time.Second,
			Chains:        []string{"solana"},
			DexID:         "pumpswap",
			PumpOnly:      true,
			MinBoostAlert: 500,
			MaxWorkers:    30,
			TokenMaxAge:   24 * time.Hour,
		},
		Pin: Pin{
			RPCURL:       "https://api.mainnet-beta.solana.com",
			PollInterval: 10 * time.Second,
			OrderExpiry:  30 * time.Minute,
			Tolerance:    0.001,
			MaxPinned:    3,
			PriceTiers: map[string]float64{
				"1":  0.5,
				"6":  2.0,
				"24": 6.0,
			},
		},
		HTTP: HTTP{
			Addr:             "0.0.0.0:16900",
			HealthServerAddr: "0.0.0.0:16901",
			CORSOrigins:      []string{"*"},
		},
		MySQL: MySQL{
			DSN:                "root:password@tcp(localhost:3306)/boostmon?charset=utf8mb4&parseTime=True&loc=Local",
			SlaveAddr:          []string{},
			MaxIdleConnections: 16,
			MaxOpenConnections: 64,
			SetConnMaxLifetime: 7200,
			SetConnMaxIdleTime: 3600,
			ProxyEnabled:       false,
			ProxyAddr:          "127.0.0.1:7890",
		},
		NATS: NATS{
			Endpoint: "",
		},
		Logger: Logger{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 60,
			MaxAge:     7,
			Compress:   false,
			Console:    false,
		},
	}
}

func Load(path string) error {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	cfgLock.Lock()
	defer cfgLock.Unlock()
	cfg = c
	cfgPath = path
	lastModTime = info.ModTime()

	return nil
}

func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Init 初始化配置并启动定期重载（默认10秒）
func Init(path string) error {
	return InitWithInterval(path, 10*time.Second)
}

// InitWithInterval 初始化配置并指定重载间隔
func InitWithInterval(path string, interval time.Duration) error {
	if err := Load(path); err != nil {
		return err
	}

	stopChan = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				reloadIfNeeded()
			case <-stopChan:
				return
			}
		}
	}()

	return nil
}

// Stop 停止配置重载
func Stop() {
	if stopChan != nil {
		close(stopChan)
	}
}

// reloadIfNeeded 仅在文件修改时重载
func reloadIfNeeded() {
	cfgLock.RLock()
	path := cfgPath
	lastMod := lastModTime
	cfgLock.RUnlock()

	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Error().Err(err).Msg("config stat failed")
		return
	}

	if info.ModTime().After(lastMod) {
		if err = Load(path); err != nil {
			logger.Error().Err(err).Msg("config reload failed")
		} else {
			logger.Info().Msg("config reloaded")
		}
	}
}
