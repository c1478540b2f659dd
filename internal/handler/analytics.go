package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard-console/internal/model"
	"dashboard-console/internal/store"
)

// DefaultRange is used when a request names neither a range nor dates.
const DefaultRange = "last-30-days"

// Ranges are the preset day ranges the analytics view offers, relative to
// the day it is computed on.
var Ranges = map[string]func(now time.Time) (start, end time.Time){
	"last-7-days":  func(now time.Time) (time.Time, time.Time) { return now.AddDate(0, 0, -7), now },
	"last-30-days": func(now time.Time) (time.Time, time.Time) { return now.AddDate(0, 0, -30), now },
	"last-90-days": func(now time.Time) (time.Time, time.Time) { return now.AddDate(0, 0, -90), now },
	"last-month": func(now time.Time) (time.Time, time.Time) {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1)
	},
	"month-to-date": func(now time.Time) (time.Time, time.Time) {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	},
}

type AnalyticsHandler struct {
	*Views
	Now func() time.Time
}

func (h *AnalyticsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// window resolves the requested day range. Explicit dates win over a
// preset; both dates must be given together and span at most
// store.MaxRangeDays days.
func (h *AnalyticsHandler) window(c *gin.Context) (string, string, bool) {
	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		if start == "" || end == "" {
			return "", "", false
		}
		s, err1 := time.Parse(model.BucketFormat, start)
		e, err2 := time.Parse(model.BucketFormat, end)
		if err1 != nil || err2 != nil || e.Before(s) {
			return "", "", false
		}
		if days := int(e.Sub(s).Hours()/24) + 1; days > store.MaxRangeDays {
			return "", "", false
		}
		return start, end, true
	}

	name := c.DefaultQuery("range", DefaultRange)
	preset, ok := Ranges[name]
	if !ok {
		return "", "", false
	}
	s, e := preset(h.now())
	return s.Format(model.BucketFormat), e.Format(model.BucketFormat), true
}

// Get loads the metrics of one app. Without an app parameter the first
// listed app is used, loading the list first if needed.
func (h *AnalyticsHandler) Get(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	start, end, ok := h.window(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range"})
		return
	}
	h.page(c)

	app := model.ID(c.Query("app"))
	if app == "" {
		if len(h.State.Apps.Apps()) == 0 {
			if _, err := h.await(c, h.Creator.RequestApps(c.Request.Context(), user)); err != nil {
				fail(c, statusOf(err), err, h.State.Apps.Errors())
				return
			}
		}
		apps := h.State.Apps.Apps()
		if len(apps) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "No application to report on"})
			return
		}
		app = apps[0].ID
	}

	if _, err := h.await(c, h.Creator.RequestMetrics(c.Request.Context(), app, start, end, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Analytics.Errors())
		return
	}
	c.JSON(http.StatusOK, h.State.Analytics.Snapshot())
}
