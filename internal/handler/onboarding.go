package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard-console/internal/store"
)

type OnboardingHandler struct {
	*Views
}

type personaBody struct {
	Persona string `json:"persona" binding:"required"`
}

type optionsBody struct {
	Options []string `json:"options"`
}

func (h *OnboardingHandler) Get(c *gin.Context) {
	h.page(c)
	c.JSON(http.StatusOK, h.State.Onboarding.Snapshot())
}

func (h *OnboardingHandler) SelectPersona(c *gin.Context) {
	var body personaBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if _, ok := store.ParsePersona(body.Persona); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown persona"})
		return
	}
	if err := h.Creator.SelectPersona(c.Request.Context(), body.Persona); err != nil {
		fail(c, statusOf(err), err, nil)
		return
	}
	c.JSON(http.StatusOK, h.State.Onboarding.Snapshot())
}

func (h *OnboardingHandler) SelectOptions(c *gin.Context) {
	var body optionsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	options := make([]string, 0, len(body.Options))
	for _, o := range body.Options {
		if o = h.clean(o); o != "" {
			options = append(options, o)
		}
	}
	if err := h.Creator.SelectOptions(c.Request.Context(), options); err != nil {
		fail(c, statusOf(err), err, nil)
		return
	}
	c.JSON(http.StatusOK, h.State.Onboarding.Snapshot())
}
