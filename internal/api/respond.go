package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"billbook/internal/engine"
	"billbook/internal/schema"
	"billbook/internal/store"
)

// recordOut — запись плюс необязательное предупреждение о зеркале:
// первичная запись состоялась, но legacy-копия разъехалась.
type recordOut struct {
	*store.Record
	MirrorWarning string `json:"mirrorWarning,omitempty"`
}

func opResultOut(res *engine.OpResult) recordOut {
	out := recordOut{Record: res.Record}
	if res.MirrorErr != nil {
		out.MirrorWarning = "legacy mirror out of sync: " + res.MirrorErr.Error()
	}
	return out
}

// respondErr переводит типизированные ошибки движка в HTTP-статусы.
func respondErr(c *gin.Context, err error) {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Errors})
	case errors.Is(err, engine.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
