package http

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IndexHandler sirve la pagina principal embebida.
type IndexHandler struct {
	page []byte
}

func NewIndexHandler(assets fs.FS) (*IndexHandler, error) {
	page, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return nil, err
	}
	return &IndexHandler{page: page}, nil
}

func (h *IndexHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}
