package dispatch

import (
	"strings"

	"github.com/spoq/spoq-tui/internal/engine/model"
	"github.com/spoq/spoq-tui/internal/wire"
)

// SubmitOutcome reports what happened to a user submission, so the UI
// collaborator can decide whether to clear its input buffer without the
// dispatcher reaching into rendering concerns.
type SubmitOutcome int

const (
	SubmitAccepted SubmitOutcome = iota
	SubmitIgnoredEmpty
	SubmitRejectedStreaming
	SubmitRejectedUnknownThread
)

// SubmitResult is the return value of Submit.
type SubmitResult struct {
	Outcome SubmitOutcome
	Message string
}

// Submit handles a user pressing enter on the input buffer. Empty or
// whitespace-only input is ignored silently; submitting onto a thread
// whose last message is still streaming is rejected with the buffer
// preserved; submitting onto a thread that no longer exists surfaces a
// message without clearing the buffer either.
func (d *Dispatcher) Submit(threadID, text string, threadType model.ThreadType, workingDirectory string, imageHashes []string) SubmitResult {
	if strings.TrimSpace(text) == "" {
		return SubmitResult{Outcome: SubmitIgnoredEmpty}
	}

	if threadID == "" {
		newID := d.Cache.CreatePendingThread(text, threadType, workingDirectory, imageHashes)
		d.ActiveThreadID = newID
		return SubmitResult{Outcome: SubmitAccepted}
	}

	if _, ok := d.Cache.GetThread(threadID); !ok {
		return SubmitResult{Outcome: SubmitRejectedUnknownThread, Message: "thread no longer exists"}
	}

	if d.Cache.IsThreadStreaming(threadID) {
		return SubmitResult{Outcome: SubmitRejectedStreaming, Message: "wait for the current response to finish"}
	}

	d.Cache.AddStreamingMessage(threadID, text)
	return SubmitResult{Outcome: SubmitAccepted}
}

// RespondPlanApproval emits the plan_approval_response envelope for the
// given request, using the distinct outbound envelope plan approvals
// require instead of the generic command_response.
func (d *Dispatcher) RespondPlanApproval(requestID string, approved bool) {
	d.sendOrDefer(wire.NewPlanApprovalResponse(requestID, approved))
}
