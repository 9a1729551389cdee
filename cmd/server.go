// Package main は画像ローテーターサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rotator/internal/config"
	"rotator/internal/imageset"
	"rotator/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	// コマンドラインオプション
	var (
		host        = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port        = flag.Int("port", 0, "サーバーのポート (デフォルト: 3000)")
		dir         = flag.String("dir", "", "画像ディレクトリ (デフォルト: 実行ファイルと同じ場所の imgs)")
		metricsPort = flag.Int("metrics-port", 0, "メトリクスのポート (デフォルト: 無効)")
		accessLog   = flag.Bool("access-log", false, "アクセスログを出力する")
		help        = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Rotator")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dir != "" {
		cfg.Images.Dir = *dir
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}
	if *accessLog {
		cfg.Server.AccessLog = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
	}

	images, err := imageset.Load(cfg.Images.Dir)
	if err != nil {
		log.Fatalf("画像の読み込みに失敗しました: %v", err)
	}
	for _, img := range images.Images() {
		log.Printf("画像を読み込みました: %s (%d bytes, id=%s)", img.Name, img.Size(), img.ID)
	}

	gin.SetMode(gin.ReleaseMode)

	srv := server.New(cfg, images)

	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
