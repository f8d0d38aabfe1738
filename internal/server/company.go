package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	companydomain "github.com/karobar/karobar/internal/company/domain"
)

func (s *Server) Setup(c *gin.Context) {
	var req companydomain.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.companySvc.Setup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListCompanies(c *gin.Context) {
	companies, err := s.companySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) GetCompanyByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	company, err := s.companySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) UpdateCompany(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Name  string `json:"name"`
		GSTIN string `json:"gstin"`
		PAN   string `json:"pan"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	company, err := s.companySvc.Update(c.Request.Context(), companydomain.UpdateCompanyRequest{
		ID:    id,
		Name:  body.Name,
		GSTIN: body.GSTIN,
		PAN:   body.PAN,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}
