package main

import (
	"context"
	"log"

	"rotator/internal/config"
	"rotator/internal/imageset"
	"rotator/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 画像を読み込む（読めない場合は待ち受け前に終了）
	images, err := imageset.Load(cfg.Images.Dir)
	if err != nil {
		log.Fatalf("画像の読み込みに失敗しました: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	// サーバーを作成
	srv := server.New(cfg, images)

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
