package imageset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNoImages は配信できる画像が 1 件もないことを表す
var ErrNoImages = errors.New("画像がありません")

// Image は読み込み済みの画像1件
type Image struct {
	ID   string // 内容から決まるID（同じ内容なら同じ値）
	Name string // 元のファイル名
	Data []byte // ファイルの中身そのもの
}

// Size はバイト数を返す
func (i Image) Size() int {
	return len(i.Data)
}

// NewImage は内容からIDを計算してImageを作る
func NewImage(name string, data []byte) Image {
	return Image{
		ID:   uuid.NewSHA1(uuid.NameSpaceURL, data).String(),
		Name: name,
		Data: data,
	}
}

// Set は不変の画像リストとローテーション用カウンター
type Set struct {
	images  []Image
	counter atomic.Uint64
}

// New はメモリ上の画像からSetを作る
func New(images []Image) (*Set, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	copied := make([]Image, len(images))
	copy(copied, images)

	return &Set{images: copied}, nil
}

// Load はディレクトリ直下のファイルをすべて読み込む
func Load(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("画像ディレクトリの読み込みに失敗: %w", err)
	}

	images := make([]Image, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("画像の読み込みに失敗 (%s): %w", path, err)
		}

		images = append(images, NewImage(entry.Name(), data))
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoImages)
	}

	return &Set{images: images}, nil
}

// Next は次の画像を返し、カウンターを1進める
func (s *Set) Next() Image {
	n := s.counter.Add(1) - 1
	return s.images[n%uint64(len(s.images))]
}

// Len は画像の件数を返す
func (s *Set) Len() int {
	return len(s.images)
}

// Served はこれまでに払い出した回数を返す
func (s *Set) Served() uint64 {
	return s.counter.Load()
}

// Images は読み込み順の画像一覧のコピーを返す
func (s *Set) Images() []Image {
	images := make([]Image, len(s.images))
	copy(images, s.images)
	return images
}
