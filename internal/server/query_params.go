package server

import (
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || raw <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return snowflake.ID(raw), true
}

func queryID(c *gin.Context, name string) snowflake.ID {
	raw, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || raw <= 0 {
		return 0
	}
	return snowflake.ID(raw)
}
