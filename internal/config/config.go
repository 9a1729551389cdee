package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort は PORT が未設定または不正な場合に使うポート番号
const DefaultPort = 3000

// DefaultImagesDir は実行ファイルからの相対で探す画像ディレクトリ名
const DefaultImagesDir = "imgs"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Images  ImagesConfig  `yaml:"images"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // 0 の場合は処理中のレスポンスを最後まで待つ

	AccessLog bool `yaml:"access_log"` // リクエストごとのアクセスログ
}

// ImagesConfig は配信する画像の設定
type ImagesConfig struct {
	Dir string `yaml:"dir"` // 起動時に読み込むディレクトリ
}

// MetricsConfig はPrometheusメトリクスの設定
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 の場合は無効
}

// Load は設定を読み込む
// デフォルト値 → CONFIG_FILE のYAML → 環境変数 の順に上書きする
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0,
		},
		Images: ImagesConfig{
			Dir: defaultImagesDir(),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルの内容で設定を上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getPort("PORT", c.Server.Port)
	c.Server.AccessLog = getEnvAsBoolOrDefault("ACCESS_LOG", c.Server.AccessLog)
	c.Images.Dir = getEnvOrDefault("IMAGES_DIR", c.Images.Dir)
	c.Metrics.Port = getEnvAsIntOrDefault("METRICS_PORT", c.Metrics.Port)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("無効なメトリクスポート番号: %d", c.Metrics.Port)
	}
	if c.Images.Dir == "" {
		return errors.New("画像ディレクトリが指定されていません")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MetricsAddress はメトリクスサーバーのリッスンアドレスを返す
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Metrics.Port)
}

// defaultImagesDir は実行ファイルと同じ場所にある imgs ディレクトリを返す
func defaultImagesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultImagesDir
	}
	return filepath.Join(filepath.Dir(exe), DefaultImagesDir)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getPort はポート番号を読む。数値でない場合や 0 の場合はデフォルト値を使う
func getPort(key string, defaultValue int) int {
	if port := getEnvAsIntOrDefault(key, 0); port != 0 {
		return port
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
