// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billbook/internal/engine"
)

// New собирает роутер; отдельно от RunServer, чтобы тесты могли гонять
// его через httptest без сети.
func New(svc *engine.Service, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Auth(), AccessLog(log), gin.Recovery())

	apiGroup := r.Group("/api")
	{
		// статические "служебные" маршруты — СНАЧАЛА
		apiGroup.GET("/modules", ListModulesHandler(svc))
		apiGroup.PUT("/modules/:id/fields", UpdateModuleFieldsHandler(svc))
		apiGroup.GET("/meta", MetaListHandler(svc))
		apiGroup.GET("/meta/:module", MetaModuleHandler(svc))

		apiGroup.GET("/:module/records/count", CountRecordsHandler(svc))
		apiGroup.POST("/:module/records/:id/restore", RestoreRecordHandler(svc))

		// обычные CRUD
		apiGroup.POST("/:module/records", CreateRecordHandler(svc))
		apiGroup.GET("/:module/records", ListRecordsHandler(svc))
		apiGroup.GET("/:module/records/:id", GetRecordHandler(svc))
		apiGroup.PATCH("/:module/records/:id", UpdateRecordHandler(svc))
		apiGroup.DELETE("/:module/records/:id", DeleteRecordHandler(svc))
	}

	return r
}

func RunServer(addr string, svc *engine.Service, log *zap.Logger) error {
	return New(svc, log).Run(addr)
}
