package model

// Outcome of a single remote create or delete.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already-exists"
	OutcomeDeleted       Outcome = "deleted"
	OutcomeAlreadyAbsent Outcome = "already-absent"
	OutcomeFailed        Outcome = "failed"
	OutcomeSkipped       Outcome = "skipped"
)

// Mutated reports whether the outcome changed remote state.
func (o Outcome) Mutated() bool {
	return o == OutcomeCreated || o == OutcomeDeleted
}

// CreateResult is Created, AlreadyExists or Failed{Code, Description}.
type CreateResult struct {
	Outcome     Outcome
	Code        string
	Description string
}

func Created() CreateResult {
	return CreateResult{Outcome: OutcomeCreated}
}

func AlreadyExists() CreateResult {
	return CreateResult{Outcome: OutcomeAlreadyExists}
}

func CreateFailed(code, description string) CreateResult {
	return CreateResult{Outcome: OutcomeFailed, Code: code, Description: description}
}

// DeleteResult is Deleted, AlreadyAbsent or Failed{Code, Description}.
type DeleteResult struct {
	Outcome     Outcome
	Code        string
	Description string
}

func Deleted() DeleteResult {
	return DeleteResult{Outcome: OutcomeDeleted}
}

func AlreadyAbsent() DeleteResult {
	return DeleteResult{Outcome: OutcomeAlreadyAbsent}
}

func DeleteFailed(code, description string) DeleteResult {
	return DeleteResult{Outcome: OutcomeFailed, Code: code, Description: description}
}
