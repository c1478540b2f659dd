package store

import (
	"sync"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

type ApplicationStore struct {
	emitter

	token  flux.Token
	logger *zap.Logger

	mu     sync.RWMutex
	apps   map[model.ID]model.Application
	errors []model.ErrorItem
	status Status
	gens   generations
}

func NewApplicationStore(d *action.Dispatcher, logger *zap.Logger) *ApplicationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ApplicationStore{
		logger: logger,
		apps:   make(map[model.ID]model.Application),
		errors: []model.ErrorItem{},
		status: StatusIdle,
		gens:   generations{},
	}
	s.token = d.Register(s.handle)
	return s
}

func (s *ApplicationStore) Token() flux.Token { return s.token }

// Apps returns the applications oldest first.
func (s *ApplicationStore) Apps() []model.Application {
	s.mu.RLock()
	out := make([]model.Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, app)
	}
	s.mu.RUnlock()

	sortByCreatedAt(out,
		func(a model.Application) string { return a.CreatedAt },
		func(a model.Application) model.ID { return a.ID },
		false)
	return out
}

func (s *ApplicationStore) AppByID(id model.ID) (model.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	return app, ok
}

func (s *ApplicationStore) Errors() []model.ErrorItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyErrors(s.errors)
}

func (s *ApplicationStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

type ApplicationsView struct {
	Apps   []model.Application `json:"apps"`
	Status Status              `json:"status"`
	Errors []model.ErrorItem   `json:"errors"`
}

func (s *ApplicationStore) Snapshot() ApplicationsView {
	return ApplicationsView{Apps: s.Apps(), Status: s.Status(), Errors: s.Errors()}
}

func (s *ApplicationStore) handle(a action.Action) error {
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
func (s *ApplicationStore) settle() {
	if s.status != StatusLoading {
		s.status = StatusPopulated
	}
}

func (s *ApplicationStore) apply(a action.Action) bool {
	if !s.gens.current(a) {
		s.logger.Debug("application store: dropping superseded response", zap.String("type", string(a.Type)))
		return false
	}

	switch a.Type {
	case action.AppsRequest:
		s.status = StatusLoading
		return true

	case action.AppsSuccess:
		list, ok := response[model.ApplicationList](a)
		if !ok {
			return false
		}
		s.apps = make(map[model.ID]model.Application, len(list.Applications))
		for _, app := range list.Applications {
			s.apps[app.ID] = app
		}
		s.errors = []model.ErrorItem{}
		s.status = StatusPopulated
		return true

	case action.AppsFailure:
		s.errors = action.ErrorItems(a.Err)
		s.status = StatusErrored
		return true

	case action.AppSuccess:
		app, ok := response[model.Application](a)
		if !ok {
			return false
		}
		s.apps[app.ID] = app
		s.settle()
		return true

	case action.AppCreateSuccess:
		app, ok := response[model.Application](a)
		if !ok {
			return false
		}
		s.apps[app.ID] = app
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.AppEditSuccess:
		app, ok := response[model.Application](a)
		if !ok {
			return false
		}
		id := a.Params.ID("id")
		if id == "" {
			id = app.ID
		}
		s.apps[id] = app
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.AppDeleteSuccess:
		delete(s.apps, a.Params.ID("id"))
		s.errors = []model.ErrorItem{}
		s.settle()
		return true

	case action.AppFailure, action.AppCreateFailure, action.AppEditFailure, action.AppDeleteFailure:
		s.errors = action.ErrorItems(a.Err)
		return true
	}
	return false
}
