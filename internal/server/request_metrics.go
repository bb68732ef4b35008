package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetRequestMetrics(c *gin.Context) {
	if s.requestMetrics == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	doc, err := s.requestMetrics.Snapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) ResetRequestMetrics(c *gin.Context) {
	if s.requestMetrics == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if err := s.requestMetrics.Reset(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
