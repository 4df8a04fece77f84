package dashboard

// Status is the phase of a hazard's learn-more request.
type Status int

const (
	Idle Status = iota
	Loading
	Resolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Display strings.
const (
	LoadingText     = "Loading info..."
	UnavailableText = "Information unavailable"
	FailureText     = "Failed to load information"
)

// HazardInfoResult is the learn-more state of one hazard. Text is set only
// when Status is Resolved or Failed.
type HazardInfoResult struct {
	Status Status `json:"-"`
	Text   string `json:"text,omitempty"`
}

// ShowButton reports whether "Learn More" is offered. Only Idle offers it;
// there is no way back to Idle.
func (r HazardInfoResult) ShowButton() bool { return r.Status == Idle }

// IsLoading reports whether the row shows the loading indicator.
func (r HazardInfoResult) IsLoading() bool { return r.Status == Loading }

// DisplayText is the text under the row once a request has finished.
func (r HazardInfoResult) DisplayText() string {
	if r.Status == Resolved || r.Status == Failed {
		return r.Text
	}
	return ""
}

// State maps hazard labels to their results. A State is never mutated after
// Reduce returns it; absent labels are Idle.
type State map[string]HazardInfoResult

// Get returns the result for label, Idle when absent.
func (s State) Get(label string) HazardInfoResult {
	return s[label]
}

// Event is an input to Reduce.
type Event interface {
	hazard() string
}

// FetchStarted moves a hazard to Loading. Sent on every click, including a
// click while already loading.
type FetchStarted struct{ Hazard string }

// FetchSucceeded carries the text returned for a hazard.
type FetchSucceeded struct {
	Hazard string
	Text   string
}

// FetchFailed records that the request for a hazard could not be completed.
type FetchFailed struct {
	Hazard string
	Err    error
}

func (e FetchStarted) hazard() string   { return e.Hazard }
func (e FetchSucceeded) hazard() string { return e.Hazard }
func (e FetchFailed) hazard() string    { return e.Hazard }

// Reduce returns the state after ev, leaving s untouched. Completions are
// applied in arrival order, so when two requests for the same hazard race
// the one that finishes last wins.
func Reduce(s State, ev Event) State {
	var next HazardInfoResult
	switch e := ev.(type) {
	case FetchStarted:
		next = HazardInfoResult{Status: Loading}
	case FetchSucceeded:
		text := e.Text
		if text == "" {
			text = UnavailableText
		}
		next = HazardInfoResult{Status: Resolved, Text: text}
	case FetchFailed:
		next = HazardInfoResult{Status: Failed, Text: FailureText}
	default:
		return s
	}

	out := make(State, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[ev.hazard()] = next
	return out
}
