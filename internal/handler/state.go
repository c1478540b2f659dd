package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type StateHandler struct {
	*Views
}

// Get returns the view of every store at once.
func (h *StateHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.State.Snapshot())
}
