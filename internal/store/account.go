package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
	"dashboard-console/internal/storage"
)

// AccountStore owns the session: the account and the signed-in user.
type AccountStore struct {
	emitter

	token  flux.Token
	kv     storage.KV
	logger *zap.Logger

	mu      sync.RWMutex
	account *model.Account
	user    *model.User
	errors  []model.ErrorItem
	gens    generations
}

func NewAccountStore(d *action.Dispatcher, kv storage.KV, logger *zap.Logger) *AccountStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AccountStore{
		kv:     kv,
		logger: logger,
		errors: []model.ErrorItem{},
		gens:   generations{},
	}
	s.token = d.Register(s.handle)
	return s
}

func (s *AccountStore) Token() flux.Token { return s.token }

// Init restores the session from durable storage. Values already held in
// memory win, so calling it again is a no-op.
func (s *AccountStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account == nil {
		var account model.Account
		ok, err := s.restore(storage.AccountKey, &account)
		if err != nil {
			return err
		}
		if ok {
			s.account = &account
		}
	}
	if s.user == nil {
		var user model.User
		ok, err := s.restore(storage.UserKey, &user)
		if err != nil {
			return err
		}
		if ok {
			s.user = &user
		}
	}
	return nil
}

func (s *AccountStore) restore(key string, out any) (bool, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("store: restore %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("store: restore %s: %w", key, err)
	}
	return true, nil
}

func (s *AccountStore) Account() (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return model.Account{}, false
	}
	return *s.account, true
}

func (s *AccountStore) AccountName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return ""
	}
	return s.account.Name
}

func (s *AccountStore) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *AccountStore) Errors() []model.ErrorItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyErrors(s.errors)
}

func (s *AccountStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Token != ""
}

type AccountView struct {
	Account       *model.Account    `json:"account"`
	User          *model.User       `json:"user"`
	Authenticated bool              `json:"authenticated"`
	Errors        []model.ErrorItem `json:"errors"`
}

// Snapshot returns the session without its credentials.
func (s *AccountStore) Snapshot() AccountView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := AccountView{
		Authenticated: s.user != nil && s.user.Token != "",
		Errors:        copyErrors(s.errors),
	}
	if s.account != nil {
		a := *s.account
		a.Token = ""
		v.Account = &a
	}
	if s.user != nil {
		u := *s.user
		u.Token = ""
		u.AccountToken = ""
		v.User = &u
	}
	return v
}

func (s *AccountStore) setAccount(account model.Account) {
	s.persist(storage.AccountKey, account)
	s.account = &account
}

func (s *AccountStore) setUser(user model.User) {
	s.persist(storage.UserKey, user)
	s.user = &user
}

func (s *AccountStore) logout() {
	for _, key := range []string{storage.AccountKey, storage.UserKey} {
		if err := s.kv.Remove(key); err != nil {
			s.logger.Error("account store: clear failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.account = nil
	s.user = nil
	s.errors = []model.ErrorItem{}
}

func (s *AccountStore) persist(key string, v any) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = s.kv.Set(key, raw)
	}
	if err != nil {
		s.logger.Error("account store: persist failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AccountStore) handle(a action.Action) error {
	s.mu.Lock()
	changed := s.apply(a)
	s.mu.Unlock()

	if changed {
		s.emitChange()
	}
	return nil
}

func (s *AccountStore) apply(a action.Action) bool {
	if !s.gens.current(a) {
		s.logger.Debug("account store: dropping superseded response", zap.String("type", string(a.Type)))
		return false
	}

	switch a.Type {
	case action.AccountSuccess, action.AccountCreateSuccess:
		account, ok := response[model.Account](a)
		if !ok {
			return false
		}
		s.setAccount(account)
		s.errors = []model.ErrorItem{}
		return true

	case action.AccountFailure:
		s.logout()
		s.errors = action.ErrorItems(a.Err)
		return true

	case action.AccountUserCreateSuccess:
		user, ok := response[model.User](a)
		if !ok {
			return false
		}
		s.setUser(user)
		s.errors = []model.ErrorItem{}
		return true

	case action.LoginSuccess:
		user, ok := response[model.User](a)
		if !ok {
			return false
		}
		s.setAccount(model.Account{ID: user.AccountID, Token: user.AccountToken})
		s.setUser(user)
		s.errors = []model.ErrorItem{}
		return true

	case action.AccountCreateFailure, action.AccountUserCreateFailure, action.LoginFailure:
		s.errors = action.ErrorItems(a.Err)
		return true

	case action.LogoutSuccess:
		s.logout()
		return true
	}
	return false
}
