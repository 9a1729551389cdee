// Package imageset は起動時に読み込んだ画像をラウンドロビンで払い出す
//
// # 責務
// - ディレクトリ直下のファイルをメモリへ読み込む（サブディレクトリは除外）
// - リクエストごとに次の画像を循環して返す
//
// # 仕様
//   - 読み込み順はファイル名順（os.ReadDir の順序）で、起動をまたいで安定する
//   - ファイルが 0 件の場合は ErrNoImages で起動を失敗させる
//   - 読み込み後の Set は不変で、複数ゴルーチンから同時に Next を呼べる
//   - 画像の中身は検証しない（拡張子も見ない）
package imageset
