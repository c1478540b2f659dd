package tracking

import "sync"

type Kind string

const (
	KindIdentify Kind = "identify"
	KindTrack    Kind = "track"
	KindPage     Kind = "page"
	KindReset    Kind = "reset"
)

// Call is one recorded sink invocation. Name holds the user id, the event
// name or the page path depending on Kind.
type Call struct {
	Kind  Kind
	Name  string
	Props map[string]any
}

// Recorder keeps every call in memory.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) Identify(id string, traits map[string]any) {
	r.add(Call{Kind: KindIdentify, Name: id, Props: traits})
}

func (r *Recorder) Track(event string, props map[string]any) {
	r.add(Call{Kind: KindTrack, Name: event, Props: props})
}

func (r *Recorder) Page(path string) {
	r.add(Call{Kind: KindPage, Name: path})
}

// Clear forgets every recorded call.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Tracked returns only the track calls.
func (r *Recorder) Tracked() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == KindTrack {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.add(Call{Kind: KindReset})
}
