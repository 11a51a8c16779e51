package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type refreshResponse struct {
	Message            string `json:"message"`
	CountriesProcessed int    `json:"countries_processed"`
	Warning            string `json:"warning,omitempty"`
}

func (s *Server) RefreshCountries(c *gin.Context) {
	result, err := s.refresher.Refresh(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := refreshResponse{
		Message:            "Countries refreshed successfully",
		CountriesProcessed: result.CountriesProcessed,
	}
	if result.RenderErr != nil {
		resp.Warning = "Summary image could not be regenerated"
		s.log.Warn("refresh committed without summary image",
			zap.String("run_id", result.RunID),
			zap.Error(result.RenderErr),
		)
	}

	c.JSON(http.StatusOK, resp)
}
