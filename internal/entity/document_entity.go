package entity

type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Rank orders statuses so that transitions can be checked for monotonicity.
// Completed and failed are both terminal.
func (s ProcessingStatus) Rank() int {
	switch s {
	case ProcessingStatusPending:
		return 0
	case ProcessingStatusProcessing:
		return 1
	case ProcessingStatusCompleted, ProcessingStatusFailed:
		return 2
	}
	return -1
}

func (s ProcessingStatus) Terminal() bool {
	return s.Rank() == 2
}

type DocumentRef struct {
	Id               string           `json:"id"`
	Filename         string           `json:"filename"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	Selected         bool             `json:"selected"`
}
