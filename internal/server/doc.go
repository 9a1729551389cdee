// Package server は、画像をローテーションで返すHTTPサーバーを管理します。
//
// このパッケージは、HTTPサーバーの起動、全リクエストへの画像の応答、
// メトリクスの公開、シグナルによるグレースフルシャットダウンを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - あらゆるメソッド・パスへのリクエストに次の画像を返す
//   - Prometheusメトリクスの配信（別ポート、任意）
//   - SIGINT / SIGTERM を受けたらグレースフルシャットダウン
//
// 仕様:
//   - ルーティングにはginを使用（全パスを同じハンドラで受ける）
//   - 応答は常に 200、Content-Type は image/jpeg 固定
//   - Content-Length は画像のバイト数と一致する
//   - リクエストの中身（メソッド、パス、ヘッダー、ボディ）は見ない
package server
