package action

import (
	"context"

	"go.uber.org/zap"

	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

// Backend is the REST surface the action creators call.
type Backend interface {
	Account(ctx context.Context, user model.User) (model.Account, error)
	CreateAccount(ctx context.Context, in model.AccountInput) (model.Account, error)
	CreateMember(ctx context.Context, account model.Account, in model.MemberInput) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, error)
	Logout(ctx context.Context, user model.User) error

	Member(ctx context.Context, id model.ID, user model.User) (model.Member, error)
	Members(ctx context.Context, user model.User) (model.MemberList, error)
	UpdateMember(ctx context.Context, id model.ID, in model.MemberInput, user model.User) (model.Member, error)
	DeleteMember(ctx context.Context, id model.ID, user model.User) error

	App(ctx context.Context, id model.ID, user model.User) (model.Application, error)
	Apps(ctx context.Context, user model.User) (model.ApplicationList, error)
	CreateApp(ctx context.Context, in model.ApplicationInput, user model.User) (model.Application, error)
	UpdateApp(ctx context.Context, id model.ID, in model.ApplicationInput, user model.User) (model.Application, error)
	DeleteApp(ctx context.Context, id model.ID, user model.User) error

	Metrics(ctx context.Context, appID model.ID, start, end string, user model.User) (model.Metrics, error)
}

type Creator struct {
	backend    Backend
	queue      *flux.Queue
	dispatcher *Dispatcher
	gens       *generations
	logger     *zap.Logger
}

func NewCreator(backend Backend, q *flux.Queue, d *Dispatcher, logger *zap.Logger) *Creator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Creator{
		backend:    backend,
		queue:      q,
		dispatcher: d,
		gens:       newGenerations(),
		logger:     logger,
	}
}

type AccountValues struct {
	AccountName        string
	AccountDescription string
}

type MemberValues struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (c *Creator) RequestAccount(ctx context.Context, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Account(ctx, user)
	}, typesFor("ACCOUNT"), Params{"user": user}, true)
}

func (c *Creator) RequestAccountCreate(ctx context.Context, vals AccountValues, plan, originalReferrer string) *flux.Future {
	in := model.AccountInput{
		Name:             vals.AccountName,
		Description:      vals.AccountDescription,
		Plan:             plan,
		OriginalReferrer: originalReferrer,
	}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.CreateAccount(ctx, in)
	}, typesFor("ACCOUNT_CREATE"), Params{"plan": plan}, false)
}

func (c *Creator) RequestAccountUserCreate(ctx context.Context, vals MemberValues, account model.Account, plan, originalReferrer, referrer string) *flux.Future {
	in := model.MemberInput{
		Email:            vals.Email,
		Password:         vals.Password,
		FirstName:        vals.FirstName,
		LastName:         vals.LastName,
		OriginalReferrer: originalReferrer,
		Referrer:         referrer,
	}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.CreateMember(ctx, account, in)
	}, typesFor("ACCOUNTUSER_CREATE"), Params{
		"accountId":        account.ID,
		"email":            vals.Email,
		"firstName":        vals.FirstName,
		"lastName":         vals.LastName,
		"plan":             plan,
		"originalReferrer": originalReferrer,
		"referrer":         referrer,
	}, false)
}

func (c *Creator) RequestApp(ctx context.Context, id model.ID, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.App(ctx, id, user)
	}, typesFor("APP"), Params{"id": id}, true)
}

func (c *Creator) RequestApps(ctx context.Context, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Apps(ctx, user)
	}, typesFor("APPS"), nil, true)
}

func (c *Creator) RequestAppCreate(ctx context.Context, name, description string, user model.User, manual bool) *flux.Future {
	in := model.ApplicationInput{Name: name, Description: description, Enabled: true}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.CreateApp(ctx, in, user)
	}, typesFor("APP_CREATE"), Params{"name": name, "description": description, "manual": manual}, false)
}

func (c *Creator) RequestAppDelete(ctx context.Context, id model.ID, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return nil, c.backend.DeleteApp(ctx, id, user)
	}, typesFor("APP_DELETE"), Params{"id": id}, false)
}

func (c *Creator) RequestAppUpdate(ctx context.Context, id model.ID, name, description string, user model.User) *flux.Future {
	in := model.ApplicationInput{Name: name, Description: description, Enabled: true}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.UpdateApp(ctx, id, in, user)
	}, typesFor("APP_EDIT"), Params{"id": id, "name": name, "description": description}, false)
}

func (c *Creator) RequestLogin(ctx context.Context, email, password string) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Login(ctx, email, password)
	}, typesFor("LOGIN"), Params{"email": email}, false)
}

func (c *Creator) RequestLogout(ctx context.Context, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return nil, c.backend.Logout(ctx, user)
	}, typesFor("LOGOUT"), Params{"user": user}, false)
}

func (c *Creator) RequestMember(ctx context.Context, id model.ID, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Member(ctx, id, user)
	}, typesFor("MEMBER"), Params{"id": id}, true)
}

func (c *Creator) RequestMemberCreate(ctx context.Context, vals MemberValues, account model.Account) *flux.Future {
	in := model.MemberInput{
		Email:     vals.Email,
		Password:  vals.Password,
		FirstName: vals.FirstName,
		LastName:  vals.LastName,
	}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.CreateMember(ctx, account, in)
	}, typesFor("MEMBER_CREATE"), Params{"accountId": account.ID, "email": vals.Email}, false)
}

func (c *Creator) RequestMemberDelete(ctx context.Context, id model.ID, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return nil, c.backend.DeleteMember(ctx, id, user)
	}, typesFor("MEMBER_DELETE"), Params{"id": id}, false)
}

// RequestMemberInvite has no backend endpoint yet; the invite is recorded
// as succeeded right away.
func (c *Creator) RequestMemberInvite(ctx context.Context, email, firstName, lastName string) *flux.Future {
	f := flux.NewFuture()
	err := c.dispatch(ctx, Action{
		Type:   MemberInviteSuccess,
		Params: Params{"email": email, "firstName": firstName, "lastName": lastName},
	})
	if err != nil {
		f.Reject(err)
		return f
	}
	f.Resolve(email)
	return f
}

func (c *Creator) RequestMemberUpdate(ctx context.Context, vals MemberValues, id model.ID, user model.User) *flux.Future {
	in := model.MemberInput{
		Email:     vals.Email,
		Password:  vals.Password,
		FirstName: vals.FirstName,
		LastName:  vals.LastName,
	}
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.UpdateMember(ctx, id, in, user)
	}, typesFor("MEMBER_UPDATE"), Params{"id": id, "email": vals.Email}, false)
}

func (c *Creator) RequestMembers(ctx context.Context, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Members(ctx, user)
	}, typesFor("MEMBERS"), nil, true)
}

// RequestMetrics fetches the analytics of app for the inclusive day range
// [start, end], both in model.BucketFormat.
func (c *Creator) RequestMetrics(ctx context.Context, appID model.ID, start, end string, user model.User) *flux.Future {
	return c.dispatchAsync(ctx, func(ctx context.Context) (any, error) {
		return c.backend.Metrics(ctx, appID, start, end, user)
	}, typesFor("ANALYTICS_METRICS"), Params{"app": appID, "start": start, "end": end}, true)
}

func (c *Creator) SelectOptions(ctx context.Context, options []string) error {
	return c.dispatch(ctx, Action{Type: SelectOptions, Params: Params{"options": options}})
}

func (c *Creator) SelectPersona(ctx context.Context, persona string) error {
	return c.dispatch(ctx, Action{Type: SelectPersona, Params: Params{"persona": persona}})
}
