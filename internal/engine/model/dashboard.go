package model

// WaitingReason names why a thread's status is "waiting" in the dashboard
// aggregate view.
type WaitingReason string

const (
	WaitingForPermission   WaitingReason = "permission"
	WaitingForUserInput    WaitingReason = "user_input"
	WaitingForPlanApproval WaitingReason = "plan_approval"
)

// ThreadStatus is the dashboard's per-thread aggregate, distinct from
// Thread.Status (a raw backend string) in that it resolves WaitingFor into
// a typed reason for the multi-thread overview.
type ThreadStatus struct {
	ThreadID      string
	Status        string
	WaitingFor    WaitingReason
	HasWaitingFor bool
}

// PlanSummaryView is the dashboard-facing rendering of a plan approval
// request's summary.
type PlanSummaryView struct {
	Title           string
	Phases          []string
	FileCount       int
	EstimatedTokens *int64
}
