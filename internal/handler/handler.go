// Package handler serves the console views. Reads go through the stores;
// every change goes through an action creator and is answered once the
// stores have applied its outcome.
package handler

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"dashboard-console/internal/action"
	"dashboard-console/internal/api"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/logging"
	"dashboard-console/internal/model"
	"dashboard-console/internal/store"
)

const defaultTimeout = 30 * time.Second

// Views carries what every view handler reads from and writes through.
type Views struct {
	State   *store.State
	Creator *action.Creator
	Policy  *bluemonday.Policy
	Timeout time.Duration
}

func (v *Views) await(c *gin.Context, f *flux.Future) (any, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()
	return f.Wait(ctx)
}

// clean strips markup from user-entered text.
func (v *Views) clean(s string) string {
	p := v.Policy
	if p == nil {
		p = bluemonday.StrictPolicy()
	}
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}

func (v *Views) sessionUser(c *gin.Context) (model.User, bool) {
	user, ok := v.State.Account.User()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session ended"})
	}
	return user, ok
}

// page reports a view of the current route.
func (v *Views) page(c *gin.Context) {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	v.State.Tracking.TrackPage(path)
}

func statusOf(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, flux.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// fail answers with the store's error list, falling back to the items
// carried by err. The request id is echoed so a report can be matched to
// its log line.
func fail(c *gin.Context, status int, err error, items []model.ErrorItem) {
	if len(items) == 0 {
		items = action.ErrorItems(err)
	}
	_ = c.Error(err)
	body := gin.H{"errors": items}
	if id := logging.RequestID(c); id != "" {
		body["requestId"] = id
	}
	c.JSON(status, body)
}

func bindID(c *gin.Context) (model.ID, bool) {
	id := model.ID(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return "", false
	}
	return id, true
}
