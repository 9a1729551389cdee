package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// 実際のファイル形式に関係なく固定
const imageContentType = "image/jpeg"

// handleImage は次の画像をそのまま返す
func (s *Server) handleImage(c *gin.Context) {
	img := s.images.Next()

	c.Header("Content-Length", strconv.Itoa(img.Size()))
	c.Data(http.StatusOK, imageContentType, img.Data)

	s.metrics.ObserveImage(img.Name, img.Size())
}
