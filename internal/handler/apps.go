package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AppHandler struct {
	*Views
}

type appBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *AppHandler) bind(c *gin.Context) (name, description string, ok bool) {
	var body appBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return "", "", false
	}
	name = h.clean(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return "", "", false
	}
	return name, h.clean(body.Description), true
}

func (h *AppHandler) List(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	h.page(c)
	if _, err := h.await(c, h.Creator.RequestApps(c.Request.Context(), user)); err != nil {
		fail(c, statusOf(err), err, h.State.Apps.Errors())
		return
	}
	c.JSON(http.StatusOK, h.State.Apps.Snapshot())
}

func (h *AppHandler) Get(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	h.page(c)
	if _, err := h.await(c, h.Creator.RequestApp(c.Request.Context(), id, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Apps.Errors())
		return
	}
	app, ok := h.State.Apps.AppByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (h *AppHandler) Create(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	name, description, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.await(c, h.Creator.RequestAppCreate(c.Request.Context(), name, description, user, true))
	if err != nil {
		fail(c, statusOf(err), err, h.State.Apps.Errors())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": resp})
}

func (h *AppHandler) Update(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	name, description, ok := h.bind(c)
	if !ok {
		return
	}
	if _, err := h.await(c, h.Creator.RequestAppUpdate(c.Request.Context(), id, name, description, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Apps.Errors())
		return
	}
	app, _ := h.State.Apps.AppByID(id)
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (h *AppHandler) Delete(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	if _, err := h.await(c, h.Creator.RequestAppDelete(c.Request.Context(), id, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Apps.Errors())
		return
	}
	c.Status(http.StatusNoContent)
}
