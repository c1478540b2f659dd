package store

import (
	"encoding/json"
	"errors"
	"testing"

	"dashboard-console/internal/action"
	"dashboard-console/internal/model"
	"dashboard-console/internal/storage"
	"dashboard-console/internal/tracking"
)

type testState struct {
	*State
	kv   *storage.MemoryKV
	sink *tracking.Recorder
}

func newTestState(t *testing.T) testState {
	t.Helper()
	kv := storage.NewMemoryKV()
	sink := &tracking.Recorder{}
	return testState{State: NewState(action.NewDispatcher(), kv, sink, nil), kv: kv, sink: sink}
}

func (s testState) dispatch(t *testing.T, a action.Action) {
	t.Helper()
	if err := s.Dispatcher.Dispatch(a); err != nil {
		t.Fatalf("Dispatch(%s): %v", a.Type, err)
	}
}

type itemsErr []model.ErrorItem

func (e itemsErr) Error() string            { return "backend error" }
func (e itemsErr) Items() []model.ErrorItem { return e }

var loginUser = model.User{ID: "1234", AccountID: "4321", AccountToken: "T", Token: "U", FirstName: "Nyan"}

func TestAccountStore_InitWithoutStoredSession(t *testing.T) {
	s := newTestState(t)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.Account.IsAuthenticated() {
		t.Fatalf("expected unauthenticated")
	}
	if _, ok := s.Account.Account(); ok {
		t.Fatalf("expected no account")
	}
	if _, ok := s.Account.User(); ok {
		t.Fatalf("expected no user")
	}
}

func TestAccountStore_InitRestoresAndIsIdempotent(t *testing.T) {
	s := newTestState(t)
	raw, _ := json.Marshal(loginUser)
	_ = s.kv.Set(storage.UserKey, raw)
	_ = s.kv.Set(storage.AccountKey, []byte(`{"id":"4321","name":"Cats"}`))

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_ = s.kv.Set(storage.AccountKey, []byte(`{"id":"9","name":"Dogs"}`))
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if !s.Account.IsAuthenticated() {
		t.Fatalf("expected authenticated")
	}
	if s.Account.AccountName() != "Cats" {
		t.Fatalf("expected Cats, got %q", s.Account.AccountName())
	}
}

func TestAccountStore_InitCorruptData(t *testing.T) {
	s := newTestState(t)
	_ = s.kv.Set(storage.UserKey, []byte(`"not a user"`))
	if err := s.Init(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAccountStore_LoginSuccess(t *testing.T) {
	s := newTestState(t)
	changes := 0
	s.Account.AddChangeListener(func() { changes++ })

	s.dispatch(t, action.Action{Type: action.LoginSuccess, Response: loginUser})

	if !s.Account.IsAuthenticated() {
		t.Fatalf("expected authenticated")
	}
	account, ok := s.Account.Account()
	if !ok || account.ID != "4321" || account.Token != "T" {
		t.Fatalf("unexpected account: %+v", account)
	}
	raw, ok, _ := s.kv.Get(storage.UserKey)
	if !ok {
		t.Fatalf("expected user persisted")
	}
	var stored model.User
	if err := json.Unmarshal(raw, &stored); err != nil || stored.ID != "1234" || stored.Token != "U" {
		t.Fatalf("unexpected stored user: %s", raw)
	}
	if changes != 1 {
		t.Fatalf("expected 1 change, got %d", changes)
	}
}

func TestAccountStore_AccountFailureForcesLogout(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.LoginSuccess, Response: loginUser})

	s.dispatch(t, action.Action{
		Type: action.AccountFailure,
		Err:  itemsErr{{Code: 401, Message: "unauthorized"}},
	})

	if s.Account.IsAuthenticated() {
		t.Fatalf("expected logged out")
	}
	if _, ok := s.Account.Account(); ok {
		t.Fatalf("expected account cleared")
	}
	for _, key := range []string{storage.AccountKey, storage.UserKey} {
		if _, ok, _ := s.kv.Get(key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}
	errs := s.Account.Errors()
	if len(errs) != 1 || errs[0].Code != 401 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestAccountStore_FailureReplacesErrors(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.LoginFailure, Err: itemsErr{{Code: 1, Message: "a"}, {Code: 2, Message: "b"}}})
	s.dispatch(t, action.Action{Type: action.LoginFailure, Err: errors.New("network down")})

	errs := s.Account.Errors()
	if len(errs) != 1 || errs[0].Code != 0 || errs[0].Message != "network down" {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestAccountStore_SignupFlow(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.AccountCreateSuccess, Response: model.Account{ID: "4321", Name: "Cats", Token: "T"}})
	if s.Account.IsAuthenticated() {
		t.Fatalf("expected unauthenticated before user creation")
	}
	s.dispatch(t, action.Action{Type: action.AccountUserCreateSuccess, Response: loginUser})
	if !s.Account.IsAuthenticated() {
		t.Fatalf("expected authenticated")
	}
	if s.Account.AccountName() != "Cats" {
		t.Fatalf("expected Cats, got %q", s.Account.AccountName())
	}
}

func TestAccountStore_LogoutSuccess(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.LoginSuccess, Response: loginUser})
	s.dispatch(t, action.Action{Type: action.LogoutSuccess, Params: action.Params{"user": loginUser}})

	if s.Account.IsAuthenticated() {
		t.Fatalf("expected logged out")
	}
	if _, ok, _ := s.kv.Get(storage.UserKey); ok {
		t.Fatalf("expected user key cleared")
	}
}

func TestAccountStore_IgnoresUnknownActions(t *testing.T) {
	s := newTestState(t)
	changes := 0
	s.Account.AddChangeListener(func() { changes++ })

	s.dispatch(t, action.Action{Type: action.Type("SOMETHING_ELSE")})
	s.dispatch(t, action.Action{Type: action.AppsSuccess, Response: model.ApplicationList{}})

	if changes != 0 {
		t.Fatalf("expected no change, got %d", changes)
	}
}

func TestAccountStore_DropsSupersededFetch(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.AccountRequest, Generation: 1})
	s.dispatch(t, action.Action{Type: action.AccountRequest, Generation: 2})
	s.dispatch(t, action.Action{Type: action.AccountSuccess, Generation: 2, Response: model.Account{ID: "1", Name: "new"}})
	s.dispatch(t, action.Action{Type: action.AccountSuccess, Generation: 1, Response: model.Account{ID: "1", Name: "old"}})

	if s.Account.AccountName() != "new" {
		t.Fatalf("expected newest response kept, got %q", s.Account.AccountName())
	}
}

func TestAccountStore_SnapshotHidesTokens(t *testing.T) {
	s := newTestState(t)
	s.dispatch(t, action.Action{Type: action.LoginSuccess, Response: loginUser})

	v := s.Account.Snapshot()
	if !v.Authenticated || v.User == nil || v.Account == nil {
		t.Fatalf("unexpected snapshot: %+v", v)
	}
	if v.User.Token != "" || v.User.AccountToken != "" || v.Account.Token != "" {
		t.Fatalf("expected tokens stripped, got %+v %+v", v.User, v.Account)
	}
	if u, _ := s.Account.User(); u.Token != "U" {
		t.Fatalf("snapshot must not alter store state")
	}
}
