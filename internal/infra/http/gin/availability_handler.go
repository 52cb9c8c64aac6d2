package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/app/dto"
	availabilityapp "stayhub/internal/app/handlers/availability"
	"stayhub/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
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
	c.JSON(http.StatusOK, report)
}

func availabilityQueryFrom(c *gin.Context) (availabilityapp.GetAvailabilityQuery, error) {
	propertyID, err := parseID(c, "id")
	if err != nil {
		return availabilityapp.GetAvailabilityQuery{}, err
	}
	start, err := parseDate("startDate", c.Query("startDate"))
	if err != nil {
		return availabilityapp.GetAvailabilityQuery{}, err
	}
	end, err := parseDate("endDate", c.Query("endDate"))
	if err != nil {
		return availabilityapp.GetAvailabilityQuery{}, err
	}
	exclude, err := parseOptionalID("excludeBlockId", c.Query("excludeBlockId"))
	if err != nil {
		return availabilityapp.GetAvailabilityQuery{}, err
	}
	return availabilityapp.GetAvailabilityQuery{
		PropertyID:      propertyID,
		StartDate:       start,
		EndDate:         end,
		RoomCode:        c.Query("roomCode"),
		RoomTypePattern: c.Query("roomType"),
		ExcludeBlockID:  exclude,
	}, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
