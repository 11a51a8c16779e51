package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	countrydomain "github.com/smallbiznis/countrystat/internal/country/domain"
)

func (s *Server) ListCountries(c *gin.Context) {
	var query struct {
		Region   string `form:"region"`
		Currency string `form:"currency"`
		Sort     string `form:"sort"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError("query", "invalid query parameters"))
		return
	}

	resp, err := s.countrySvc.List(c.Request.Context(), countrydomain.ListCountryRequest{
		Region:   strings.TrimSpace(query.Region),
		Currency: strings.TrimSpace(query.Currency),
		Sort:     strings.TrimSpace(query.Sort),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateCountry(c *gin.Context) {
	var req countrydomain.CreateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("body", "must be a JSON object"))
		return
	}

	resp, err := s.countrySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetCountry(c *gin.Context) {
	resp, err := s.countrySvc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteCountry(c *gin.Context) {
	if err := s.countrySvc.DeleteByName(c.Request.Context(), c.Param("name")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetStatus(c *gin.Context) {
	resp, err := s.countrySvc.Status(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
