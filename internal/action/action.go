package action

import (
	"errors"
	"strings"

	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

type Type string

const (
	AccountRequest = Type("ACCOUNT_REQUEST")
	AccountSuccess = Type("ACCOUNT_SUCCESS")
	AccountFailure = Type("ACCOUNT_FAILURE")

	AccountCreateRequest = Type("ACCOUNT_CREATE_REQUEST")
	AccountCreateSuccess = Type("ACCOUNT_CREATE_SUCCESS")
	AccountCreateFailure = Type("ACCOUNT_CREATE_FAILURE")

	AccountUserCreateRequest = Type("ACCOUNTUSER_CREATE_REQUEST")
	AccountUserCreateSuccess = Type("ACCOUNTUSER_CREATE_SUCCESS")
	AccountUserCreateFailure = Type("ACCOUNTUSER_CREATE_FAILURE")

	LoginRequest = Type("LOGIN_REQUEST")
	LoginSuccess = Type("LOGIN_SUCCESS")
	LoginFailure = Type("LOGIN_FAILURE")

	LogoutRequest = Type("LOGOUT_REQUEST")
	LogoutSuccess = Type("LOGOUT_SUCCESS")
	LogoutFailure = Type("LOGOUT_FAILURE")

	AppRequest = Type("APP_REQUEST")
	AppSuccess = Type("APP_SUCCESS")
	AppFailure = Type("APP_FAILURE")

	AppsRequest = Type("APPS_REQUEST")
	AppsSuccess = Type("APPS_SUCCESS")
	AppsFailure = Type("APPS_FAILURE")

	AppCreateRequest = Type("APP_CREATE_REQUEST")
	AppCreateSuccess = Type("APP_CREATE_SUCCESS")
	AppCreateFailure = Type("APP_CREATE_FAILURE")

	AppDeleteRequest = Type("APP_DELETE_REQUEST")
	AppDeleteSuccess = Type("APP_DELETE_SUCCESS")
	AppDeleteFailure = Type("APP_DELETE_FAILURE")

	AppEditRequest = Type("APP_EDIT_REQUEST")
	AppEditSuccess = Type("APP_EDIT_SUCCESS")
	AppEditFailure = Type("APP_EDIT_FAILURE")

	MemberRequest = Type("MEMBER_REQUEST")
	MemberSuccess = Type("MEMBER_SUCCESS")
	MemberFailure = Type("MEMBER_FAILURE")

	MembersRequest = Type("MEMBERS_REQUEST")
	MembersSuccess = Type("MEMBERS_SUCCESS")
	MembersFailure = Type("MEMBERS_FAILURE")

	MemberCreateRequest = Type("MEMBER_CREATE_REQUEST")
	MemberCreateSuccess = Type("MEMBER_CREATE_SUCCESS")
	MemberCreateFailure = Type("MEMBER_CREATE_FAILURE")

	MemberDeleteRequest = Type("MEMBER_DELETE_REQUEST")
	MemberDeleteSuccess = Type("MEMBER_DELETE_SUCCESS")
	MemberDeleteFailure = Type("MEMBER_DELETE_FAILURE")

	MemberUpdateRequest = Type("MEMBER_UPDATE_REQUEST")
	MemberUpdateSuccess = Type("MEMBER_UPDATE_SUCCESS")
	MemberUpdateFailure = Type("MEMBER_UPDATE_FAILURE")

	MemberInviteSuccess = Type("MEMBER_INVITE_SUCCESS")
	MemberInviteFailure = Type("MEMBER_INVITE_FAILURE")

	AnalyticsMetricsRequest = Type("ANALYTICS_METRICS_REQUEST")
	AnalyticsMetricsSuccess = Type("ANALYTICS_METRICS_SUCCESS")
	AnalyticsMetricsFailure = Type("ANALYTICS_METRICS_FAILURE")

	SelectOptions = Type("SELECT_OPTIONS")
	SelectPersona = Type("SELECT_PERSONA")
)

// Request maps a success or failure type onto the request type of the
// same operation.
func (t Type) Request() Type {
	s := string(t)
	for _, suffix := range []string{"_SUCCESS", "_FAILURE", "_REQUEST"} {
		if strings.HasSuffix(s, suffix) {
			return Type(strings.TrimSuffix(s, suffix) + "_REQUEST")
		}
	}
	return t
}

func (t Type) IsRequest() bool { return strings.HasSuffix(string(t), "_REQUEST") }

// Action is the record carried through one dispatch cycle.
type Action struct {
	Type     Type
	Response any
	Err      error
	Params   Params
	// Generation orders fetches of the same operation; zero means untracked.
	Generation uint64
}

type Dispatcher = flux.Dispatcher[Action]

func NewDispatcher() *Dispatcher {
	return flux.NewDispatcher[Action]()
}

// Params holds the request-local values bound by an action creator.
type Params map[string]any

func (p Params) String(key string) string {
	v, _ := p[key].(string)
	return v
}

func (p Params) ID(key string) model.ID {
	switch v := p[key].(type) {
	case model.ID:
		return v
	case string:
		return model.ID(v)
	}
	return ""
}

func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Params) User(key string) (model.User, bool) {
	v, ok := p[key].(model.User)
	return v, ok
}

func (p Params) Strings(key string) []string {
	v, _ := p[key].([]string)
	return v
}

type itemizer interface {
	Items() []model.ErrorItem
}

// ErrorItems extracts the backend error list carried by err. Errors that do
// not carry a list become a single item with code 0.
func ErrorItems(err error) []model.ErrorItem {
	if err == nil {
		return nil
	}
	var it itemizer
	if errors.As(err, &it) {
		items := it.Items()
		if len(items) > 0 {
			out := make([]model.ErrorItem, len(items))
			copy(out, items)
			return out
		}
	}
	return []model.ErrorItem{{Code: 0, Message: err.Error()}}
}
