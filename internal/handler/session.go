package handler

import (
	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
)

// sessionFrom extracts the rider identity the API gateway attaches to each
// request. Missing headers leave fields empty; downstream prefill tolerates
// that.
func sessionFrom(c *gin.Context) domain.Session {
	return domain.Session{
		UserID: c.GetHeader("X-User-ID"),
		Name:   c.GetHeader("X-User-Name"),
		Email:  c.GetHeader("X-User-Email"),
		Phone:  c.GetHeader("X-User-Phone"),
	}
}
