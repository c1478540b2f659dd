package store

import (
	"errors"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/storage"
	"dashboard-console/internal/tracking"
)

const (
	NameAccount    = "account"
	NameApps       = "apps"
	NameMembers    = "members"
	NameAnalytics  = "analytics"
	NameOnboarding = "onboarding"
)

type observable interface {
	AddChangeListener(fn func()) flux.ListenerID
	RemoveChangeListener(id flux.ListenerID) bool
}

// State owns the dispatcher and every store of one console session. The
// composition root builds it once and hands it to whatever reads it.
type State struct {
	Dispatcher *action.Dispatcher

	Account    *AccountStore
	Apps       *ApplicationStore
	Members    *MemberStore
	Analytics  *AnalyticsStore
	Onboarding *OnboardingStore
	Tracking   *TrackingStore
}

func NewState(d *action.Dispatcher, kv storage.KV, sink tracking.Sink, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	account := NewAccountStore(d, kv, logger)
	return &State{
		Dispatcher: d,
		Account:    account,
		Apps:       NewApplicationStore(d, logger),
		Members:    NewMemberStore(d, logger),
		Analytics:  NewAnalyticsStore(d, logger),
		Onboarding: NewOnboardingStore(d, logger),
		Tracking:   NewTrackingStore(d, account, sink),
	}
}

// Init restores the durable parts of the state.
func (s *State) Init() error {
	return s.Account.Init()
}

// ErrDispatching is returned by Close while a dispatch is in progress.
var ErrDispatching = errors.New("store: state is dispatching")

// Close unregisters every store from the dispatcher. Call it once the
// dispatch loop has stopped.
func (s *State) Close() error {
	if s.Dispatcher.IsDispatching() {
		return ErrDispatching
	}
	var errs []error
	for _, tok := range []flux.Token{
		s.Account.Token(),
		s.Apps.Token(),
		s.Members.Token(),
		s.Analytics.Token(),
		s.Onboarding.Token(),
		s.Tracking.Token(),
	} {
		if err := s.Dispatcher.Unregister(tok); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *State) observables() map[string]observable {
	return map[string]observable{
		NameAccount:    s.Account,
		NameApps:       s.Apps,
		NameMembers:    s.Members,
		NameAnalytics:  s.Analytics,
		NameOnboarding: s.Onboarding,
	}
}

// Subscribe calls fn with the store name whenever an observable store
// emits change. The returned function removes every listener.
func (s *State) Subscribe(fn func(name string)) func() {
	type sub struct {
		store observable
		id    flux.ListenerID
	}
	var subs []sub
	for name, o := range s.observables() {
		name := name
		subs = append(subs, sub{store: o, id: o.AddChangeListener(func() { fn(name) })})
	}
	return func() {
		for _, sb := range subs {
			sb.store.RemoveChangeListener(sb.id)
		}
	}
}

// View returns the snapshot of the named store.
func (s *State) View(name string) (any, bool) {
	switch name {
	case NameAccount:
		return s.Account.Snapshot(), true
	case NameApps:
		return s.Apps.Snapshot(), true
	case NameMembers:
		return s.Members.Snapshot(), true
	case NameAnalytics:
		return s.Analytics.Snapshot(), true
	case NameOnboarding:
		return s.Onboarding.Snapshot(), true
	}
	return nil, false
}

type Snapshot struct {
	Account    AccountView      `json:"account"`
	Apps       ApplicationsView `json:"apps"`
	Members    MembersView      `json:"members"`
	Analytics  AnalyticsView    `json:"analytics"`
	Onboarding OnboardingView   `json:"onboarding"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Account:    s.Account.Snapshot(),
		Apps:       s.Apps.Snapshot(),
		Members:    s.Members.Snapshot(),
		Analytics:  s.Analytics.Snapshot(),
		Onboarding: s.Onboarding.Snapshot(),
	}
}
