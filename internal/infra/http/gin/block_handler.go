package ginserver

import (
	"fmt"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	blocksapp "stayhub/internal/app/handlers/blocks"
)

type BlockHandler struct {
	Commands commands.Bus
}

type blockRequest struct {
	RoomCode      string `json:"roomCode"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Source        string `json:"source"`
	BedsBlocked   int    `json:"bedsBlocked"`
	AllowOverbook bool   `json:"allowOverbook"`
}

func (h BlockHandler) Create(c *gin.Context) {
	h.place(c, false)
}

func (h BlockHandler) Update(c *gin.Context) {
	h.place(c, true)
}

func (h BlockHandler) place(c *gin.Context, existing bool) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var blockID int64
	if existing {
		if blockID, err = parseID(c, "blockId"); err != nil {
			writeError(c, err)
			return
		}
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		writeError(c, err)
		return
	}

	cmd := blocksapp.PlaceBlockCommand{
		PropertyID:      propertyID,
		BlockID:         blockID,
		RoomCode:        req.RoomCode,
		StartDate:       start,
		EndDate:         end,
		Source:          req.Source,
		BedsBlocked:     req.BedsBlocked,
		AllowOverbook:   req.AllowOverbook,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[blocksapp.PlaceBlockCommand, *dto.PlaceBlockResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h BlockHandler) Delete(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	blockID, err := parseID(c, "blockId")
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := blocksapp.ReleaseBlockCommand{
		PropertyID:      propertyID,
		BlockID:         blockID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[blocksapp.ReleaseBlockCommand, *dto.ReleaseBlockResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BlockHTTP = BlockHandler{}
