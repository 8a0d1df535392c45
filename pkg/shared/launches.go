package shared

// Launch statuses.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// GenericResult is the record of one launch in a batch.
type GenericResult struct {
	Args    interface{} `json:"args"`
	Result  interface{} `json:"result"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// GenericLaunchesResult collects the launches of one command invocation.
type GenericLaunchesResult struct {
	Launches []GenericResult `json:"launches"`
}

// Failed returns the number of launches that did not finish with StatusOK.
func (r GenericLaunchesResult) Failed() int {
	n := 0
	for _, l := range r.Launches {
		if l.Status != StatusOK {
			n++
		}
	}
	return n
}
