package store

import (
	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
	"dashboard-console/internal/tracking"
)

const (
	EventMemberSignedUp     = "Member signed up"
	EventMemberLoggedIn     = "Member logged in"
	EventMemberLoggedOut    = "Member logged out"
	EventApplicationCreated = "Application created"
	EventApplicationEdited  = "Application edited"
	EventApplicationDeleted = "Application deleted"
	EventMemberCreated      = "Member created"
	EventMemberDeleted      = "Member deleted"
	EventMemberInvited      = "Member invited"
)

// TrackingStore forwards selected outcomes to the analytics sink. It holds
// no state and never emits change. It runs after the AccountStore on every
// dispatch so that events following a login are attributed to the new user.
type TrackingStore struct {
	token      flux.Token
	dispatcher *action.Dispatcher
	account    *AccountStore
	sink       tracking.Sink
}

func NewTrackingStore(d *action.Dispatcher, account *AccountStore, sink tracking.Sink) *TrackingStore {
	if sink == nil {
		sink = tracking.Nop{}
	}
	s := &TrackingStore{dispatcher: d, account: account, sink: sink}
	s.token = d.Register(s.handle, flux.WaitsFor(account.Token()))
	return s
}

func (s *TrackingStore) Token() flux.Token { return s.token }

func (s *TrackingStore) identify() {
	if !s.account.IsAuthenticated() {
		return
	}
	user, _ := s.account.User()
	s.sink.Identify(user.ID.String(), map[string]any{
		"firstName": user.FirstName,
		"lastName":  user.LastName,
	})
}

func (s *TrackingStore) trackEvent(event string, props map[string]any) {
	s.identify()
	s.sink.Track(event, props)
}

// TrackPage records a page view for the current session.
func (s *TrackingStore) TrackPage(path string) {
	s.identify()
	s.sink.Page(path)
}

func (s *TrackingStore) handle(a action.Action) error {
	if err := s.dispatcher.WaitFor(s.account.Token()); err != nil {
		return err
	}

	p := a.Params
	switch a.Type {
	case action.AccountUserCreateFailure:
		s.trackEvent(EventMemberSignedUp, map[string]any{
			"eventId":        1,
			"email":          p.String("email"),
			"firstName":      p.String("firstName"),
			"lastName":       p.String("lastName"),
			"organizationId": p.ID("accountId").String(),
			"plan":           p.String("plan"),
			"success":        false,
		})
	case action.AccountUserCreateSuccess:
		user, _ := response[model.User](a)
		s.trackEvent(EventMemberSignedUp, map[string]any{
			"eventId":        1,
			"email":          p.String("email"),
			"firstName":      p.String("firstName"),
			"lastName":       p.String("lastName"),
			"memberId":       user.ID.String(),
			"organizationId": p.ID("accountId").String(),
			"plan":           p.String("plan"),
			"referrer":       p.String("referrer"),
			"success":        true,
		})

	case action.LoginFailure:
		s.trackEvent(EventMemberLoggedIn, map[string]any{"eventId": 2, "success": false})
	case action.LoginSuccess:
		user, _ := response[model.User](a)
		s.trackEvent(EventMemberLoggedIn, map[string]any{
			"eventId":  2,
			"memberId": user.ID.String(),
			"success":  true,
		})

	case action.LogoutFailure, action.LogoutSuccess:
		user, _ := p.User("user")
		s.trackEvent(EventMemberLoggedOut, map[string]any{
			"eventId":  3,
			"memberId": user.ID.String(),
			"success":  a.Type == action.LogoutSuccess,
		})
		if !s.account.IsAuthenticated() {
			s.sink.Reset()
		}

	case action.AppCreateFailure:
		s.trackEvent(EventApplicationCreated, map[string]any{
			"eventId":        7,
			"appName":        p.String("name"),
			"appDescription": p.String("description"),
			"manually":       p.Bool("manual"),
			"success":        false,
		})
	case action.AppCreateSuccess:
		app, _ := response[model.Application](a)
		s.trackEvent(EventApplicationCreated, map[string]any{
			"eventId":        7,
			"appId":          app.ID.String(),
			"appName":        p.String("name"),
			"appDescription": p.String("description"),
			"manually":       p.Bool("manual"),
			"success":        true,
		})

	case action.AppEditFailure, action.AppEditSuccess:
		s.trackEvent(EventApplicationEdited, map[string]any{
			"eventId":        8,
			"appId":          p.ID("id").String(),
			"appName":        p.String("name"),
			"appDescription": p.String("description"),
			"manually":       true,
			"success":        a.Type == action.AppEditSuccess,
		})

	case action.AppDeleteFailure, action.AppDeleteSuccess:
		s.trackEvent(EventApplicationDeleted, map[string]any{
			"eventId": 9,
			"appId":   p.ID("id").String(),
			"success": a.Type == action.AppDeleteSuccess,
		})

	case action.MemberCreateFailure:
		s.trackEvent(EventMemberCreated, map[string]any{"eventId": 10, "success": false})
	case action.MemberCreateSuccess:
		m, _ := response[model.Member](a)
		s.trackEvent(EventMemberCreated, map[string]any{
			"eventId":  10,
			"memberId": m.ID.String(),
			"success":  true,
		})

	case action.MemberDeleteFailure, action.MemberDeleteSuccess:
		s.trackEvent(EventMemberDeleted, map[string]any{
			"eventId":  11,
			"memberId": p.ID("id").String(),
			"success":  a.Type == action.MemberDeleteSuccess,
		})

	case action.MemberInviteFailure, action.MemberInviteSuccess:
		s.trackEvent(EventMemberInvited, map[string]any{
			"eventId": 12,
			"email":   p.String("email"),
			"success": a.Type == action.MemberInviteSuccess,
		})
	}
	return nil
}
