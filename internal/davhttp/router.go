package davhttp

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds a gin engine that dispatches every RFC 4918 method this
// server supports to h, wrapped in access logging and panic recovery.
func NewRouter(h *Handler, logger *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recovery(logger), AccessLog(logger))

	const path = "/*path"
	r.Handle("OPTIONS", path, h.Options)
	r.Handle("GET", path, h.Get)
	r.Handle("HEAD", path, h.Head)
	r.Handle("PUT", path, h.Put)
	r.Handle("DELETE", path, h.Delete)
	r.Handle("MKCOL", path, h.Mkcol)
	r.Handle("COPY", path, h.Copy)
	r.Handle("MOVE", path, h.Move)
	r.Handle("PROPFIND", path, h.Propfind)
	r.Handle("PROPPATCH", path, h.Proppatch)
	r.Handle("LOCK", path, h.Lock)
	r.Handle("UNLOCK", path, h.Unlock)

	r.NoRoute(func(c *gin.Context) {
		c.Status(404)
	})

	return r
}
