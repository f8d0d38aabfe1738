package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
)

func (s *Server) ListBranches(c *gin.Context) {
	branches, err := s.branchSvc.List(c.Request.Context(), queryID(c, "company_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

func (s *Server) CreateBranch(c *gin.Context) {
	var req branchdomain.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	branch, err := s.branchSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}

func (s *Server) GetBranchByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	branch, err := s.branchSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (s *Server) RetireBranch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.branchSvc.Retire(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
