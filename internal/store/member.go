package store

import (
	"sync"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

type MemberStore struct {
	emitter

	token  flux.Token
	logger *zap.Logger

	mu      sync.RWMutex
	members map[model.ID]model.Member
	errors  []model.ErrorItem
	status  Status
	invited []string
	gens    generations
}

func NewMemberStore(d *action.Dispatcher, logger *zap.Logger) *MemberStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemberStore{
		logger:  logger,
		members: make(map[model.ID]model.Member),
		errors:  []model.ErrorItem{},
		status:  StatusIdle,
		gens:    generations{},
	}
	s.token = d.Register(s.handle)
	return s
}

func (s *MemberStore) Token() flux.Token { return s.token }

// Members returns the members newest first.
func (s *MemberStore) Members() []model.Member {
	s.mu.RLock()
	out := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sortByCreatedAt(out,
		func(m model.Member) string { return m.CreatedAt },
		func(m model.Member) model.ID { return m.ID },
		true)
	return out
}

func (s *MemberStore) MemberByID(id model.ID) (model.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	return m, ok
}

func (s *MemberStore) Errors() []model.ErrorItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyErrors(s.errors)
}

func (s *MemberStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Invited lists the addresses invited during this session.
func (s *MemberStore) Invited() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.invited...)
}

type MembersView struct {
	Members []model.Member    `json:"members"`
	Invited []string          `json:"invited"`
	Status  Status            `json:"status"`
	Errors  []model.ErrorItem `json:"errors"`
}

func (s *MemberStore) Snapshot() MembersView {
	members := s.Members()
	for i := range members {
		members[i].Token = ""
		members[i].AccountToken = ""
	}
	return MembersView{Members: members, Invited: s.Invited(), Status: s.Status(), Errors: s.Errors()}
}

func (s *MemberStore) handle(a action.Action) error {
	s.mu.Lock()
	changed := s.apply(a)
	s.mu.Unlock()

	if changed {
		s.emitChange()
	}
	return nil
}

// settle marks the store populated after a successful single-item response,
// unless a list load is still in flight.
func (s *MemberStore) settle() {
	if s.status != StatusLoading {
		s.status = StatusPopulated
	}
}

func (s *MemberStore) apply(a action.Action) bool {
	if !s.gens.current(a) {
		s.logger.Debug("member store: dropping superseded response", zap.String("type", string(a.Type)))
		return false
	}

	switch a.Type {
	case action.MembersRequest:
		s.status = StatusLoading
		return true

	case action.MembersSuccess:
		list, ok := response[model.MemberList](a)
		if !ok {
			return false
		}
		s.members = make(map[model.ID]model.Member, len(list.AccountUsers))
		for _, m := range list.AccountUsers {
			s.members[m.ID] = m
		}
		s.errors = []model.ErrorItem{}
		s.status = StatusPopulated
		return true

	case action.MembersFailure:
		s.errors = action.ErrorItems(a.Err)
		s.status = StatusErrored
		return true

	case action.MemberSuccess, action.MemberCreateSuccess:
		m, ok := response[model.Member](a)
		if !ok {
			return false
		}
		s.members[m.ID] = m
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.MemberUpdateSuccess:
		m, ok := response[model.Member](a)
		if !ok {
			return false
		}
		id := a.Params.ID("id")
		if id == "" {
			id = m.ID
		}
		s.members[id] = m
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.MemberDeleteSuccess:
		delete(s.members, a.Params.ID("id"))
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.MemberInviteSuccess:
		email := a.Params.String("email")
		for _, existing := range s.invited {
			if existing == email {
				return false
			}
		}
		s.invited = append(s.invited, email)
		return true

	case action.MemberFailure, action.MemberCreateFailure, action.MemberDeleteFailure,
		action.MemberUpdateFailure, action.MemberInviteFailure:
		s.errors = action.ErrorItems(a.Err)
		return true
	}
	return false
}
