package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
	"github.com/simoncinid/hostgpt-sub000/internal/session"
)

// writeError maps a protocol error to the widget-facing JSON shape. The
// kind field is stable so the frontend can branch without parsing text.
func writeError(c *gin.Context, err error) {
	var (
		identityErr *chaterr.IdentityError
		billingErr  *chaterr.BillingError
		quotaErr    *chaterr.QuotaError
		lockErr     *chaterr.LockError
		mediaErr    *chaterr.MediaError
	)

	switch {
	case errors.Is(err, session.ErrSendInFlight):
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "send_in_flight",
			"error": "a message is already being sent",
		})
	case errors.As(err, &identityErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"kind":  "identity",
			"error": identityErr.Reason,
		})
	case errors.As(err, &billingErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"kind":    "billing",
			"subkind": string(billingErr.Kind),
			"error":   billingErr.Message,
		})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"kind":  "quota",
			"error": quotaErr.Message,
		})
	case errors.As(err, &lockErr):
		c.JSON(http.StatusLocked, gin.H{
			"kind":  "locked",
			"error": lockErr.Reason,
		})
	case errors.As(err, &mediaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"kind":    "media",
			"subkind": string(mediaErr.Kind),
			"error":   mediaErr.Error(),
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"kind":  "transient",
			"error": err.Error(),
		})
	}
}
