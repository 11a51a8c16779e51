package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const reportFilename = "countries-summary.pdf"

func (s *Server) GetSummaryImage(c *gin.Context) {
	data, modTime, err := s.summary.Image(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !modTime.IsZero() {
		c.Header("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) GetSummaryReport(c *gin.Context) {
	data, err := s.summary.Report(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+reportFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
