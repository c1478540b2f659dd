package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

// MaxRangeDays bounds the number of days one metrics query may span.
const MaxRangeDays = 3660

// DimensionInfo is the static display metadata of one analytics dimension.
type DimensionInfo struct {
	Display string `json:"display"`
	Icon    string `json:"icon"`
}

var dimensions = map[string]DimensionInfo{
	model.DimensionConnections: {Display: "connections", Icon: "ui-2_node"},
	model.DimensionEvents:      {Display: "events", Icon: "ui-2_favourite-31"},
	model.DimensionObjects:     {Display: "posts & comments", Icon: "ui-2_chat"},
	model.DimensionUsers:       {Display: "new users", Icon: "users_multiple-11"},
}

// Dimension looks up the display metadata of a known dimension.
func Dimension(name string) (DimensionInfo, bool) {
	info, ok := dimensions[name]
	return info, ok
}

// AnalyticsStore holds the series of the last successful metrics query,
// aligned to one label per day of the requested range.
type AnalyticsStore struct {
	emitter

	token  flux.Token
	logger *zap.Logger

	mu         sync.RWMutex
	app        model.ID
	labels     []string
	dimensions map[string][]int
	errors     []model.ErrorItem
	status     Status
	gens       generations
}

func NewAnalyticsStore(d *action.Dispatcher, logger *zap.Logger) *AnalyticsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AnalyticsStore{
		logger:     logger,
		labels:     []string{},
		dimensions: map[string][]int{},
		errors:     []model.ErrorItem{},
		status:     StatusIdle,
		gens:       generations{},
	}
	s.token = d.Register(s.handle)
	return s
}

func (s *AnalyticsStore) Token() flux.Token { return s.token }

func (s *AnalyticsStore) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.labels...)
}

func (s *AnalyticsStore) Dimensions() map[string][]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]int, len(s.dimensions))
	for k, v := range s.dimensions {
		out[k] = append([]int{}, v...)
	}
	return out
}

// DimensionNames returns the dimensions of the current series, sorted.
func (s *AnalyticsStore) DimensionNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.dimensions))
	for k := range s.dimensions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Summary totals every dimension over the current range.
func (s *AnalyticsStore) Summary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.dimensions))
	for k, series := range s.dimensions {
		total := 0
		for _, v := range series {
			total += v
		}
		out[k] = total
	}
	return out
}

func (s *AnalyticsStore) App() model.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

func (s *AnalyticsStore) Errors() []model.ErrorItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyErrors(s.errors)
}

func (s *AnalyticsStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

type AnalyticsView struct {
	App        model.ID          `json:"app"`
	Labels     []string          `json:"labels"`
	Dimensions map[string][]int  `json:"dimensions"`
	Summary    map[string]int    `json:"summary"`
	Status     Status            `json:"status"`
	Errors     []model.ErrorItem `json:"errors"`
}

func (s *AnalyticsStore) Snapshot() AnalyticsView {
	return AnalyticsView{
		App:        s.App(),
		Labels:     s.Labels(),
		Dimensions: s.Dimensions(),
		Summary:    s.Summary(),
		Status:     s.Status(),
		Errors:     s.Errors(),
	}
}

func (s *AnalyticsStore) handle(a action.Action) error {
	s.mu.Lock()
	changed := s.apply(a)
	s.mu.Unlock()

	if changed {
		s.emitChange()
	}
	return nil
}

func (s *AnalyticsStore) apply(a action.Action) bool {
	if !s.gens.current(a) {
		s.logger.Debug("analytics store: dropping superseded response", zap.String("type", string(a.Type)))
		return false
	}

	switch a.Type {
	case action.AnalyticsMetricsRequest:
		s.status = StatusLoading
		return true

	case action.AnalyticsMetricsSuccess:
		metrics, ok := response[model.Metrics](a)
		if !ok {
			return false
		}
		labels, err := DayLabels(a.Params.String("start"), a.Params.String("end"))
		if err != nil {
			s.logger.Warn("analytics store: invalid range", zap.Error(err))
		}
		s.app = a.Params.ID("app")
		s.labels = labels
		s.dimensions = align(labels, metrics)
		s.errors = []model.ErrorItem{}
		s.status = StatusPopulated
		return true

	case action.AnalyticsMetricsFailure:
		s.errors = action.ErrorItems(a.Err)
		s.status = StatusErrored
		return true
	}
	return false
}

// DayLabels lists every day from start to end inclusive in
// model.BucketFormat. An empty range yields no labels.
func DayLabels(start, end string) ([]string, error) {
	from, err := time.Parse(model.BucketFormat, start)
	if err != nil {
		return []string{}, err
	}
	to, err := time.Parse(model.BucketFormat, end)
	if err != nil {
		return []string{}, err
	}

	labels := []string{}
	for d := from; !d.After(to) && len(labels) < MaxRangeDays; d = d.AddDate(0, 0, 1) {
		labels = append(labels, d.Format(model.BucketFormat))
	}
	return labels, nil
}

func align(labels []string, metrics model.Metrics) map[string][]int {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	out := make(map[string][]int, len(metrics))
	for dim, series := range metrics {
		values := make([]int, len(labels))
		for _, p := range series {
			if i, ok := index[bucketDay(p.Bucket)]; ok {
				values[i] = p.Value
			}
		}
		out[dim] = values
	}
	return out
}

// bucketDay reduces a bucket timestamp to its day.
func bucketDay(bucket string) string {
	if len(bucket) >= len(model.BucketFormat) {
		return bucket[:len(model.BucketFormat)]
	}
	return bucket
}
