package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard-console/internal/action"
	"dashboard-console/internal/model"
)

type MemberHandler struct {
	*Views
}

type memberBody struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type inviteBody struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *MemberHandler) bind(c *gin.Context) (action.MemberValues, bool) {
	var body memberBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return action.MemberValues{}, false
	}
	return action.MemberValues{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: h.clean(body.FirstName),
		LastName:  h.clean(body.LastName),
	}, true
}

// account returns the session account with the credentials the backend
// expects for member creation.
func (h *MemberHandler) account(user model.User) model.Account {
	account, ok := h.State.Account.Account()
	if !ok || account.ID == "" {
		account = model.Account{ID: user.AccountID}
	}
	if account.Token == "" {
		account.Token = user.AccountToken
	}
	return account
}

func (h *MemberHandler) List(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	h.page(c)
	if _, err := h.await(c, h.Creator.RequestMembers(c.Request.Context(), user)); err != nil {
		fail(c, statusOf(err), err, h.State.Members.Errors())
		return
	}
	c.JSON(http.StatusOK, h.State.Members.Snapshot())
}

func (h *MemberHandler) Get(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	h.page(c)
	if _, err := h.await(c, h.Creator.RequestMember(c.Request.Context(), id, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Members.Errors())
		return
	}
	member, ok := h.State.Members.MemberByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	member.Token, member.AccountToken = "", ""
	c.JSON(http.StatusOK, gin.H{"member": member})
}

func (h *MemberHandler) Create(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	vals, ok := h.bind(c)
	if !ok {
		return
	}
	if vals.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}
	resp, err := h.await(c, h.Creator.RequestMemberCreate(c.Request.Context(), vals, h.account(user)))
	if err != nil {
		fail(c, statusOf(err), err, h.State.Members.Errors())
		return
	}
	member, _ := resp.(model.User)
	member.Token, member.AccountToken = "", ""
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

func (h *MemberHandler) Update(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	vals, ok := h.bind(c)
	if !ok {
		return
	}
	if _, err := h.await(c, h.Creator.RequestMemberUpdate(c.Request.Context(), vals, id, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Members.Errors())
		return
	}
	member, _ := h.State.Members.MemberByID(id)
	member.Token, member.AccountToken = "", ""
	c.JSON(http.StatusOK, gin.H{"member": member})
}

func (h *MemberHandler) Delete(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	if _, err := h.await(c, h.Creator.RequestMemberDelete(c.Request.Context(), id, user)); err != nil {
		fail(c, statusOf(err), err, h.State.Members.Errors())
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MemberHandler) Invite(c *gin.Context) {
	var body inviteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	f := h.Creator.RequestMemberInvite(c.Request.Context(), body.Email, h.clean(body.FirstName), h.clean(body.LastName))
	if _, err := h.await(c, f); err != nil {
		fail(c, statusOf(err), err, nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"invited": h.State.Members.Invited()})
}
