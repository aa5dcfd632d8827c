package workflow

type StepID string

type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepSkipped
	StepFailed
)

type StepDef struct {
	ID    StepID
	Label string
}

type Step struct {
	ID    StepID
	Label string
	State StepState
	Err   string
}
