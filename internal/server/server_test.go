package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"syscall"
	"testing"
	"time"

	"rotator/internal/config"
	"rotator/internal/imageset"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig はランダムポートを使うテスト用の設定を作成する
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Images: config.ImagesConfig{Dir: "unused"},
	}
}

// testImages は a.jpg, b.jpg の順に並んだSetを作成する
func testImages(t *testing.T) *imageset.Set {
	t.Helper()
	set, err := imageset.New([]imageset.Image{
		imageset.NewImage("a.jpg", []byte("image-a")),
		imageset.NewImage("b.jpg", bytes.Repeat([]byte{0xff}, 10000)),
	})
	require.NoError(t, err)
	return set
}

// startServer はサーバーを別ゴルーチンで起動し、待ち受け開始まで待つ
func startServer(t *testing.T, srv *Server) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("サーバーの起動に失敗しました: %v", err)
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatal("サーバーの起動がタイムアウトしました")
	}
	return cancel, errCh
}

func waitStopped(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		require.NoError(t, err, "サーバーの停止でエラーが発生しました")
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestHandleImage_Rotation は全メソッド・全パスで画像が順番に返ることをテストする
func TestHandleImage_Rotation(t *testing.T) {
	images := testImages(t)
	srv := New(testConfig(), images)
	want := images.Images()

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodPost, "/cats/123"},
		{http.MethodGet, "/favicon.ico?x=1"},
		{http.MethodDelete, "/a/b/c"},
		{"PROPFIND", "/dav"},
	}

	for i, req := range requests {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(req.method, req.path, nil))

		expected := want[i%len(want)]
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", req.method, req.path)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, strconv.Itoa(expected.Size()), w.Header().Get("Content-Length"))
		assert.Equal(t, expected.Data, w.Body.Bytes(), "request %d", i+1)
	}

	assert.Equal(t, uint64(len(requests)), images.Served())

	// a.jpg と b.jpg の2系列
	count, err := testutil.GatherAndCount(srv.Metrics().Registry(), "rotator_images_served_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestServerRoundTrip は実際のソケット越しにローテーションとContent-Lengthを確認する
func TestServerRoundTrip(t *testing.T) {
	images := testImages(t)
	srv := New(testConfig(), images)
	srv.Log = log.New(io.Discard, "", 0)

	cancel, errCh := startServer(t, srv)
	defer cancel()

	baseURL := fmt.Sprintf("http://%s", srv.Addr())
	want := []string{"a.jpg", "b.jpg", "a.jpg", "b.jpg"}
	byName := map[string]imageset.Image{}
	for _, img := range images.Images() {
		byName[img.Name] = img
	}

	for i, name := range want {
		resp, err := http.Get(baseURL + "/anything")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(len(body)), resp.ContentLength, "request %d", i+1)
		assert.Equal(t, byName[name].Data, body, "request %d", i+1)
	}

	cancel()
	waitStopped(t, errCh)
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	var logs bytes.Buffer
	srv := New(testConfig(), testImages(t))
	srv.Log = log.New(&logs, "", 0)

	assert.Nil(t, srv.Addr(), "起動前はアドレスを持たない")

	cancel, errCh := startServer(t, srv)
	port := srv.Addr().(*net.TCPAddr).Port

	cancel()
	waitStopped(t, errCh)

	// 待ち受け開始のログにポート番号が含まれる
	assert.Contains(t, logs.String(), strconv.Itoa(port))

	// 停止後は接続できない
	_, err := net.DialTimeout("tcp", srv.Addr().String(), 500*time.Millisecond)
	assert.Error(t, err)
}

// TestServerSIGTERM はSIGTERMでグレースフルに停止することをテストする
func TestServerSIGTERM(t *testing.T) {
	var logs bytes.Buffer
	srv := New(testConfig(), testImages(t))
	srv.Log = log.New(&logs, "", 0)

	cancel, errCh := startServer(t, srv)
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	waitStopped(t, errCh)
	assert.Contains(t, logs.String(), "terminated")
}

// TestServerBindFailure はポートが使用中の場合にエラーを返すことをテストする
func TestServerBindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	cfg.Server.Port = occupied.Addr().(*net.TCPAddr).Port

	srv := New(cfg, testImages(t))
	srv.Log = log.New(io.Discard, "", 0)

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "サーバーの起動に失敗")

	select {
	case <-srv.Ready():
		t.Error("バインドに失敗したのに Ready がクローズされました")
	default:
	}
}

// TestServerMetricsEndpoint はメトリクス用の別ポートをテストする
func TestServerMetricsEndpoint(t *testing.T) {
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsPort := probe.Addr().(*net.TCPAddr).Port
	require.NoError(t, probe.Close())

	cfg := testConfig()
	cfg.Metrics.Port = metricsPort

	srv := New(cfg, testImages(t))
	srv.Log = log.New(io.Discard, "", 0)

	cancel, errCh := startServer(t, srv)
	defer cancel()

	resp, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", metricsPort))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Contains(t, string(body), `rotator_images_served_total{image="a.jpg"} 1`)
	assert.Contains(t, string(body), "rotator_images_loaded 2")

	cancel()
	waitStopped(t, errCh)
}
