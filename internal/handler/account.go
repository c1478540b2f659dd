package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/auth"
	"dashboard-console/internal/model"
	"dashboard-console/internal/referrer"
)

const (
	defaultPlan          = "free"
	firstAppName        = "Testing Application"
	firstAppDescription = "This is your first app. Use its API token for testing."
)

type AccountHandler struct {
	*Views
	TokenConfig auth.TokenConfig
	Referrers   *referrer.Jar
	Logger      *zap.Logger
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupBody struct {
	Email              string `json:"email" binding:"required"`
	Password           string `json:"password" binding:"required"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	AccountName        string `json:"accountName"`
	AccountDescription string `json:"accountDescription"`
	Plan               string `json:"plan"`
}

func (h *AccountHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *AccountHandler) issue(c *gin.Context, status int) {
	user, ok := h.State.Account.User()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": h.State.Account.Errors()})
		return
	}
	token, err := auth.CreateToken(user, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	c.JSON(status, gin.H{"token": token, "account": h.State.Account.Snapshot()})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.await(c, h.Creator.RequestLogin(c.Request.Context(), body.Email, body.Password)); err != nil {
		status := statusOf(err)
		if status >= 400 && status < 500 {
			status = http.StatusUnauthorized
		}
		fail(c, status, err, h.State.Account.Errors())
		return
	}
	h.issue(c, http.StatusOK)
}

// Signup creates the account, then its first user, then a testing app for
// that user. The app is a convenience; failing to create it does not fail
// the signup.
func (h *AccountHandler) Signup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	plan := body.Plan
	if plan == "" {
		plan = defaultPlan
	}
	accountName := h.clean(body.AccountName)
	if accountName == "" {
		accountName = body.Email
	}
	var originalReferrer string
	if h.Referrers != nil {
		originalReferrer = h.Referrers.Take(c.Writer, c.Request)
	}
	ctx := c.Request.Context()

	created, err := h.await(c, h.Creator.RequestAccountCreate(ctx, action.AccountValues{
		AccountName:        accountName,
		AccountDescription: h.clean(body.AccountDescription),
	}, plan, originalReferrer))
	if err != nil {
		fail(c, statusOf(err), err, h.State.Account.Errors())
		return
	}
	account, _ := created.(model.Account)

	vals := action.MemberValues{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: h.clean(body.FirstName),
		LastName:  h.clean(body.LastName),
	}
	member, err := h.await(c, h.Creator.RequestAccountUserCreate(ctx, vals, account, plan, originalReferrer, c.Request.Referer()))
	if err != nil {
		fail(c, statusOf(err), err, h.State.Account.Errors())
		return
	}

	user, ok := h.State.Account.User()
	if !ok {
		user, _ = member.(model.User)
	}
	if _, err := h.await(c, h.Creator.RequestAppCreate(ctx, firstAppName, firstAppDescription, user, false)); err != nil {
		h.logger().Warn("create first app", zap.String("account", account.ID.String()), zap.Error(err))
	}

	if !h.State.Account.IsAuthenticated() {
		c.JSON(http.StatusCreated, gin.H{"account": h.State.Account.Snapshot()})
		return
	}
	h.issue(c, http.StatusCreated)
}

func (h *AccountHandler) Logout(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	if _, err := h.await(c, h.Creator.RequestLogout(c.Request.Context(), user)); err != nil {
		fail(c, statusOf(err), err, h.State.Account.Errors())
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Get(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	h.page(c)
	if _, err := h.await(c, h.Creator.RequestAccount(c.Request.Context(), user)); err != nil {
		fail(c, statusOf(err), err, h.State.Account.Errors())
		return
	}
	c.JSON(http.StatusOK, h.State.Account.Snapshot())
}
