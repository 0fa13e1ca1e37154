package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/middleware"
	"github.com/noah-isme/integrity-report-api/internal/models"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

func bindError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
