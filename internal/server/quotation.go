package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/karobar/karobar/internal/quotation/domain"
)

func (s *Server) ListQuotations(c *gin.Context) {
	quotations, err := s.quotationSvc.List(c.Request.Context(), quotationdomain.ListQuotationsRequest{
		CompanyID: queryID(c, "company_id"),
		BranchID:  queryID(c, "branch_id"),
		Status:    quotationdomain.Status(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotations": quotations})
}

func (s *Server) CreateQuotation(c *gin.Context) {
	var req quotationdomain.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	quotation, err := s.quotationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quotation)
}

func (s *Server) GetQuotationByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	quotation, err := s.quotationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func (s *Server) UpdateQuotation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body quotationdomain.UpdateQuotationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	body.ID = id

	quotation, err := s.quotationSvc.Update(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}

func (s *Server) UpdateQuotationStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Status quotationdomain.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	quotation, err := s.quotationSvc.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotation)
}
