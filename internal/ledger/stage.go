package ledger

// Stage is a point in an event's recording lifecycle.
type Stage string

const (
	StagePending   Stage = "pending"
	StageHashed    Stage = "hashed"
	StagePersisted Stage = "persisted"
	StageProven    Stage = "proven"
	StageRecorded  Stage = "recorded"
)

// Durable reports whether an event at this stage is already persisted.
func (s Stage) Durable() bool {
	switch s {
	case StagePersisted, StageProven, StageRecorded:
		return true
	default:
		return false
	}
}
