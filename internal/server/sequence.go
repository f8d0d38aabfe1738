package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
)

func (s *Server) ListSequences(c *gin.Context) {
	scopes, err := s.sequenceSvc.List(c.Request.Context(), seqdomain.ListScopesRequest{
		CompanyID:       queryID(c, "company_id"),
		BranchID:        queryID(c, "branch_id"),
		DocumentType:    seqdomain.DocumentType(c.Query("document_type")),
		FinancialYearID: queryID(c, "financial_year_id"),
		IncludeDeleted:  c.Query("include_deleted") == "true",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequences": scopes})
}

func (s *Server) UpdateSequenceFormat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Prefix    string `json:"prefix"`
		PadLength int    `json:"pad_length"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	scope, err := s.sequenceSvc.UpdateFormat(c.Request.Context(), seqdomain.UpdateFormatRequest{
		ScopeID:   id,
		Prefix:    body.Prefix,
		PadLength: body.PadLength,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, scope)
}

func (s *Server) RetireSequence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.sequenceSvc.Retire(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
