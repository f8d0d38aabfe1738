package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
)

func (s *Server) ListFinancialYears(c *gin.Context) {
	years, err := s.yearSvc.List(c.Request.Context(), queryID(c, "company_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"financial_years": years})
}

func (s *Server) CreateFinancialYear(c *gin.Context) {
	var req fydomain.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	year, err := s.yearSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, year)
}

func (s *Server) GetFinancialYearByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	year, err := s.yearSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, year)
}

func (s *Server) LockFinancialYear(c *gin.Context) {
	s.setFinancialYearLock(c, true)
}

func (s *Server) UnlockFinancialYear(c *gin.Context) {
	s.setFinancialYearLock(c, false)
}

func (s *Server) setFinancialYearLock(c *gin.Context, locked bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	year, err := s.yearSvc.SetLocked(c.Request.Context(), id, locked)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, year)
}
