package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rotator/internal/config"
	"rotator/internal/imageset"
	"rotator/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	images     *imageset.Set
	metrics    *metrics.Recorder
	engine     *gin.Engine
	httpServer *http.Server

	// メトリクス用（Metrics.Port が 0 の場合は nil）
	metricsServer *http.Server

	// Log は起動・停止メッセージの出力先
	Log *log.Logger

	listener net.Listener
	ready    chan struct{}
	signals  []os.Signal
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, images *imageset.Set) *Server {
	s := &Server{
		config:  cfg,
		images:  images,
		metrics: metrics.NewRecorder(),
		engine:  gin.New(),
		Log:     log.Default(),
		ready:   make(chan struct{}),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	s.metrics.SetImagesLoaded(images.Len())

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	if cfg.Metrics.Port > 0 {
		s.metricsServer = &http.Server{
			Addr:    cfg.MetricsAddress(),
			Handler: s.metrics.Handler(),
		}
	}

	s.setupRoutes()

	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())
	if s.config.Server.AccessLog {
		s.engine.Use(gin.LoggerWithWriter(s.Log.Writer()))
	}
	s.engine.Use(s.metrics.Middleware())

	// メソッドもパスも問わず同じ画像ハンドラに流す
	s.engine.Any("/*path", s.handleImage)
	s.engine.NoRoute(s.handleImage)
}

// Handler はテスト用にHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics はメトリクスのRecorderを返す
func (s *Server) Metrics() *metrics.Recorder {
	return s.metrics
}

// Ready は待ち受け開始後にクローズされるチャンネルを返す
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr は待ち受け中のアドレスを返す（Ready の後にのみ有効）
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.listener.Addr()
	default:
		return nil
	}
}

// Start はサーバーを起動する
// ポートのバインドに失敗した場合はエラーを返し、シグナルかコンテキストのキャンセルで
// グレースフルシャットダウンして nil を返す
func (s *Server) Start(ctx context.Context) error {
	// シグナルハンドリング（最初に届いたものだけを使う）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)
	defer signal.Stop(sigCh)

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}

	var metricsListener net.Listener
	if s.metricsServer != nil {
		metricsListener, err = net.Listen("tcp", s.metricsServer.Addr)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("メトリクスサーバーの起動に失敗: %w", err)
		}
	}

	s.listener = listener
	close(s.ready)
	s.Log.Printf("ポート %d で待ち受けを開始しました (画像 %d 件)", listener.Addr().(*net.TCPAddr).Port, s.images.Len())

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 2)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーが異常終了しました: %w", err)
		}
	}()

	if metricsListener != nil {
		go func() {
			s.Log.Printf("メトリクスサーバーを起動しています: %s", metricsListener.Addr())
			if err := s.metricsServer.Serve(metricsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				shutdownCh <- fmt.Errorf("メトリクスサーバーが異常終了しました: %w", err)
			}
		}()
	}

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.Log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.Log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		_ = s.Shutdown()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// ShutdownTimeout が 0 の場合は処理中のレスポンスが終わるまで待つ
func (s *Server) Shutdown() error {
	s.Log.Println("サーバーをシャットダウンしています...")

	ctx := context.Background()
	if timeout := s.config.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("サーバーのシャットダウンに失敗: %w", err))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("メトリクスサーバーのシャットダウンに失敗: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.Log.Printf("サーバーが正常にシャットダウンされました (配信 %d 件)", s.images.Served())
	return nil
}
