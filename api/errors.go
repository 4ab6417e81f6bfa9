package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/servicebooking/internal/auth"
	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	Current   string `json:"current,omitempty"`
	Attempted string `json:"attempted,omitempty"`
}

var conflictCodes = []struct {
	err  error
	code string
}{
	{domain.ErrNotAvailable, "NOT_AVAILABLE"},
	{domain.ErrAlreadyPaid, "ALREADY_PAID"},
	{domain.ErrPaymentInProgress, "PAYMENT_IN_PROGRESS"},
	{domain.ErrAlreadyReviewed, "ALREADY_REVIEWED"},
	{domain.ErrPaymentNotAllowed, "PAYMENT_NOT_ALLOWED"},
}

// writeError maps domain errors to status codes. Unknown errors are logged and hidden.
func writeError(c *gin.Context, err error) {
	var (
		terr *domain.TransitionError
		verr *domain.ValidationError
	)
	switch {
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, errorResponse{
			Error:     err.Error(),
			Code:      "INVALID_TRANSITION",
			Current:   string(terr.Current),
			Attempted: string(terr.Attempted),
		})
		return
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "VALIDATION_ERROR", Field: verr.Field})
		return
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
		return
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: err.Error(), Code: "FORBIDDEN"})
		return
	case errors.Is(err, domain.ErrPaymentGateway):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "PAYMENT_GATEWAY_ERROR"})
		return
	}

	for _, cc := range conflictCodes {
		if errors.Is(err, cc.err) {
			c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: cc.code})
			return
		}
	}

	zap.L().Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "INTERNAL"})
}

func badRequest(c *gin.Context, field string, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "VALIDATION_ERROR", Field: field})
}

// currentActor returns the authenticated actor. Routes without auth middleware get 401.
func currentActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Code: "UNAUTHORIZED"})
	}
	return actor, ok
}
