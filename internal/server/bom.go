package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bomdomain "github.com/karobar/karobar/internal/bom/domain"
)

func (s *Server) ListBOMs(c *gin.Context) {
	boms, err := s.bomSvc.List(c.Request.Context(), queryID(c, "company_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boms": boms})
}

func (s *Server) CreateBOM(c *gin.Context) {
	var req bomdomain.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bom, err := s.bomSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bom)
}

func (s *Server) GetBOMByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bom, err := s.bomSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bom)
}

func (s *Server) ApproveBOM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bom, err := s.bomSvc.Approve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bom)
}

func (s *Server) CloneBOM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bom, err := s.bomSvc.Clone(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bom)
}
