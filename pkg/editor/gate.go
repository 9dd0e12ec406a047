package editor

import (
	"time"
)

// RequestState is the visible state of a save or execute action.
type RequestState string

const (
	RequestIdle      RequestState = "idle"
	RequestInFlight  RequestState = "in_flight"
	RequestSucceeded RequestState = "succeeded"
	RequestFailed    RequestState = "failed"
)

// RequestStatus is what the editor shows for one action kind.
type RequestStatus struct {
	State      RequestState `json:"state"`
	Token      uint64       `json:"token"`
	Error      string       `json:"error,omitempty"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

// gate allows at most one outstanding request per action kind. Every Begin hands out a larger
// generation token; only the completion carrying the latest token updates the status.
type gate struct {
	latest uint64
	status RequestStatus
}

func newGate() *gate {
	return &gate{status: RequestStatus{State: RequestIdle}}
}

// begin starts a request. With a request outstanding it fails unless force is set, in which case
// the outstanding request is superseded and its completion will be discarded.
func (g *gate) begin(force bool) (uint64, error) {
	if g.status.State == RequestInFlight && !force {
		return 0, ErrRequestInFlight
	}

	g.latest++
	g.status = RequestStatus{State: RequestInFlight, Token: g.latest}

	return g.latest, nil
}

// complete records the outcome of the request identified by token. It reports false when the
// token was superseded.
func (g *gate) complete(token uint64, err error, at time.Time) bool {
	if token != g.latest || g.status.State != RequestInFlight {
		return false
	}

	g.status = RequestStatus{State: RequestSucceeded, Token: token, FinishedAt: at}

	if err != nil {
		g.status.State = RequestFailed
		g.status.Error = err.Error()
	}

	return true
}

func (g *gate) inFlight() bool {
	return g.status.State == RequestInFlight
}
