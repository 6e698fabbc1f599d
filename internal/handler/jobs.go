package handler

import (
	"net/http"

	"minisuper/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// JobsHandler exposes the dead letter queues of the background workers.
type JobsHandler struct {
	rdb *redis.Client
}

func NewJobsHandler(rdb *redis.Client) *JobsHandler { return &JobsHandler{rdb: rdb} }

type colaDLQ struct {
	Cola      string              `json:"cola"`
	Total     int64               `json:"total"`
	Recientes []worker.EntradaDLQ `json:"recientes"`
}

// ListarDLQ godoc
// @Summary  Dead letter queues of the background workers
// @Tags     Jobs
// @Produce  json
// @Security BearerAuth
// @Router   /api/jobs/dlq [get]
func (h *JobsHandler) ListarDLQ(c *gin.Context) {
	ctx := c.Request.Context()
	colas := []string{worker.QueueReporteCierre, worker.QueueEmail}
	resp := make([]colaDLQ, 0, len(colas))
	for _, cola := range colas {
		total, err := worker.LargoDLQ(ctx, h.rdb, cola)
		if err != nil {
			respondError(c, err)
			return
		}
		recientes, err := worker.LeerDLQ(ctx, h.rdb, cola, 20)
		if err != nil {
			respondError(c, err)
			return
		}
		resp = append(resp, colaDLQ{Cola: cola, Total: total, Recientes: recientes})
	}
	respondOK(c, http.StatusOK, resp, "")
}
