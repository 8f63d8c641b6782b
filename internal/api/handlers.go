package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"billbook/internal/engine"
	"billbook/internal/schema"
)

// GET /api/modules — полные определения, только админ.
func ListModulesHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		mods, err := svc.ListModules(c.Request.Context(), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, mods)
	}
}

// GET /api/meta — схемы для текущей роли, невидимые поля вырезаны.
func MetaListHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		mods, err := svc.ListModuleDefinitions(c.Request.Context(), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, mods)
	}
}

// GET /api/meta/:module
func MetaModuleHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.GetModuleDefinition(c.Request.Context(), c.Param("module"), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// PUT /api/modules/:id/fields — замена списка полей целиком (админ).
func UpdateModuleFieldsHandler(svc *engine.Service) gin.HandlerFunc {
	type req struct {
		Fields []schema.Field `json:"fields"`
	}
	return func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		m, err := svc.UpdateModuleFields(c.Request.Context(), c.Param("id"), body.Fields, actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// POST /api/:module/records
func CreateRecordHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]interface{}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		res, err := svc.CreateRecord(c.Request.Context(), c.Param("module"), payload, actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, opResultOut(res))
	}
}

// GET /api/:module/records?limit=&offset=
func ListRecordsHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := svc.ListRecords(c.Request.Context(), c.Param("module"), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		limit, offset := parsePage(c)
		total := len(recs)
		start := offset
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		c.Header("X-Total-Count", strconv.Itoa(total))
		c.JSON(http.StatusOK, recs[start:end])
	}
}

// GET /api/:module/records/count
func CountRecordsHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.CountRecords(c.Request.Context(), c.Param("module"), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": n})
	}
}

// GET /api/:module/records/:id
func GetRecordHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.GetRecord(c.Request.Context(), c.Param("module"), c.Param("id"), actorFrom(c).Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// PATCH /api/:module/records/:id — частичный апдейт, непереданные
// поля не трогаются.
func UpdateRecordHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]interface{}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		res, err := svc.UpdateRecord(c.Request.Context(), c.Param("module"), c.Param("id"), payload, actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, opResultOut(res))
	}
}

// DELETE /api/:module/records/:id — soft delete.
func DeleteRecordHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.DeleteRecord(c.Request.Context(), c.Param("module"), c.Param("id"), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		if res.MirrorErr != nil {
			c.JSON(http.StatusOK, gin.H{"ok": true,
				"mirrorWarning": "legacy mirror out of sync: " + res.MirrorErr.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// POST /api/:module/records/:id/restore — возврат soft-deleted записи (админ).
func RestoreRecordHandler(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.RestoreRecord(c.Request.Context(), c.Param("module"), c.Param("id"), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, opResultOut(res))
	}
}

func parsePage(c *gin.Context) (limit, offset int) {
	limit = 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
