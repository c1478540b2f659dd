package store

import (
	"sync"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
)

type Persona string

const (
	PersonaMarketing Persona = "marketing"
	PersonaProduct   Persona = "product"
	PersonaTechLead  Persona = "techlead"
	PersonaMobileDev Persona = "mobiledev"
)

var personaOrder = []Persona{PersonaMarketing, PersonaProduct, PersonaTechLead, PersonaMobileDev}

func ParsePersona(s string) (Persona, bool) {
	for _, p := range personaOrder {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

type Option struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

type PersonaInfo struct {
	Persona  Persona  `json:"persona"`
	Display  string   `json:"display"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
	Avatar   string   `json:"avatar"`
}

var avatars = map[Persona]string{
	PersonaMarketing: "images/personas/avatar.png",
	PersonaProduct:   "images/personas/avatar.png",
	PersonaTechLead:  "images/personas/avatar.png",
	PersonaMobileDev: "images/personas/avatar.png",
}

var personas = map[Persona]PersonaInfo{
	PersonaMarketing: {
		Display:  "Marketing Genius",
		Question: "What do you expect from adding a social layer to your app?",
		Options: []Option{
			{Key: "retention", Display: "Retention"},
			{Key: "growth", Display: "User Growth"},
			{Key: "community", Display: "Community Building"},
			{Key: "brand", Display: "Brand Building"},
		},
	},
	PersonaProduct: {Display: "Product Star"},
	PersonaTechLead: {
		Display:  "Technical Lead",
		Question: "Which platforms are you interested in?",
		Options: []Option{
			{Key: "web", Display: "Web"},
			{Key: "ios", Display: "iOS"},
			{Key: "android", Display: "Android"},
			{Key: "other", Display: "Others"},
		},
	},
	PersonaMobileDev: {Display: "Mobile Developer"},
}

// Personas returns the persona table in display order.
func Personas() []PersonaInfo {
	out := make([]PersonaInfo, 0, len(personaOrder))
	for _, p := range personaOrder {
		info := personas[p]
		info.Persona = p
		info.Avatar = avatars[p]
		info.Options = append([]Option{}, info.Options...)
		out = append(out, info)
	}
	return out
}

type OnboardingStore struct {
	emitter

	token  flux.Token
	logger *zap.Logger

	mu      sync.RWMutex
	persona Persona
	options []string
}

func NewOnboardingStore(d *action.Dispatcher, logger *zap.Logger) *OnboardingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OnboardingStore{logger: logger}
	s.token = d.Register(s.handle)
	return s
}

func (s *OnboardingStore) Token() flux.Token { return s.token }

func (s *OnboardingStore) Persona() (Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona, s.persona != ""
}

func (s *OnboardingStore) Options() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.options...)
}

func (s *OnboardingStore) Personas() []PersonaInfo { return Personas() }

type OnboardingView struct {
	Persona  Persona       `json:"persona,omitempty"`
	Options  []string      `json:"options"`
	Personas []PersonaInfo `json:"personas"`
}

func (s *OnboardingStore) Snapshot() OnboardingView {
	p, _ := s.Persona()
	return OnboardingView{Persona: p, Options: s.Options(), Personas: Personas()}
}

func (s *OnboardingStore) handle(a action.Action) error {
	s.mu.Lock()
	changed := s.apply(a)
	s.mu.Unlock()

	if changed {
		s.emitChange()
	}
	return nil
}

func (s *OnboardingStore) apply(a action.Action) bool {
	switch a.Type {
	case action.SelectPersona:
		p, ok := ParsePersona(a.Params.String("persona"))
		if !ok {
			s.logger.Warn("onboarding store: unknown persona", zap.String("persona", a.Params.String("persona")))
			return false
		}
		s.persona = p
		return true

	case action.SelectOptions:
		s.options = append([]string(nil), a.Params.Strings("options")...)
		return true
	}
	return false
}
