package ginserver

import (
	"context"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/app/dto"
	availabilityapp "stayhub/internal/app/handlers/availability"
	"stayhub/internal/app/queries"
)

// SnapshotArchiver persists a computed report and returns where it can be fetched.
type SnapshotArchiver interface {
	Save(ctx context.Context, report dto.AvailabilityReport) (string, error)
}

type SnapshotHandler struct {
	Queries queries.Bus
	Archive SnapshotArchiver
}

func (h SnapshotHandler) Create(c *gin.Context) {
	if h.Queries == nil || h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshots unavailable"})
		return
	}
	q, err := availabilityQueryFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.AvailabilityReport](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	link, err := h.Archive.Save(c.Request.Context(), report)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": link, "report": report})
}

var _ SnapshotHTTP = SnapshotHandler{}
