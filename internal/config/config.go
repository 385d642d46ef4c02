package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Avatar  AvatarConfig
	Notify  NotifyConfig
	Session SessionConfig
}

// Load 从环境变量（以及可选的 CONFIG_FILE 配置文件）加载配置。
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	avatar, err := loadAvatarConfig(v)
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig(v)
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Avatar: avatar, Notify: notify, Session: session}, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	path := strings.TrimSpace(v.GetString("CONFIG_FILE"))
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile 模式下 viper 直接透传底层的文件系统错误。
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("HEYGEN_BASE_URL", "https://api.heygen.com")
	v.SetDefault("HEYGEN_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_MAX_RETRIES", "3")
	v.SetDefault("NOTIFY_USER_AGENT", "HeyGen-Interview-Bot/1.0")
	v.SetDefault("NOTIFY_ALLOW_URL_OVERRIDE", "false")
	v.SetDefault("SESSION_RETENTION", "1h")
	v.SetDefault("SESSION_EVENT_BUFFER", "32")
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址与跨域配置。
func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	origins := splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	port := strings.TrimSpace(v.GetString("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AvatarConfig 描述数字人厂商（HeyGen）接口配置。
type AvatarConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Enabled 表示是否提供了令牌签发所需的密钥。
func (c AvatarConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadAvatarConfig(v *viper.Viper) (AvatarConfig, error) {
	timeout, err := parseDuration(v, "HEYGEN_TIMEOUT")
	if err != nil {
		return AvatarConfig{}, err
	}

	return AvatarConfig{
		APIKey:  strings.TrimSpace(v.GetString("HEYGEN_API_KEY")),
		BaseURL: strings.TrimSpace(v.GetString("HEYGEN_BASE_URL")),
		Timeout: timeout,
	}, nil
}

// NotifyConfig 描述外部自动化（n8n）webhook 配置。
type NotifyConfig struct {
	StartedURL string
	EndedURL   string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int

	// AllowURLOverride 允许调用方在请求体中通过 webhookUrl 指定投递地址。
	AllowURLOverride bool
}

func loadNotifyConfig(v *viper.Viper) (NotifyConfig, error) {
	timeout, err := parseDuration(v, "NOTIFY_TIMEOUT")
	if err != nil {
		return NotifyConfig{}, err
	}

	retries, err := parseInt(v, "NOTIFY_MAX_RETRIES")
	if err != nil {
		return NotifyConfig{}, err
	}
	if retries < 0 {
		retries = 0
	}

	allowOverride, err := parseBool(v, "NOTIFY_ALLOW_URL_OVERRIDE")
	if err != nil {
		return NotifyConfig{}, err
	}

	return NotifyConfig{
		StartedURL:       strings.TrimSpace(v.GetString("N8N_WEBHOOK_URL")),
		EndedURL:         strings.TrimSpace(v.GetString("N8N_CONVERSATION_WEBHOOK_URL")),
		UserAgent:        strings.TrimSpace(v.GetString("NOTIFY_USER_AGENT")),
		Timeout:          timeout,
		MaxRetries:       retries,
		AllowURLOverride: allowOverride,
	}, nil
}

// SessionConfig 描述会话保留策略与实时事件缓冲。
type SessionConfig struct {
	Retention   time.Duration
	EventBuffer int
}

func loadSessionConfig(v *viper.Viper) (SessionConfig, error) {
	retention, err := parseDuration(v, "SESSION_RETENTION")
	if err != nil {
		return SessionConfig{}, err
	}
	if retention <= 0 {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_RETENTION value %q: must be positive", v.GetString("SESSION_RETENTION"))
	}

	buffer, err := parseInt(v, "SESSION_EVENT_BUFFER")
	if err != nil {
		return SessionConfig{}, err
	}
	if buffer <= 0 {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_EVENT_BUFFER value %q: must be positive", v.GetString("SESSION_EVENT_BUFFER"))
	}
	return SessionConfig{Retention: retention, EventBuffer: buffer}, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
