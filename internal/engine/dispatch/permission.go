package dispatch

import (
	"encoding/json"

	"github.com/spoq/spoq-tui/internal/wire"
)

// ApproveOnce answers the pending permission with allow-once semantics
// (keyboard 'y'), emits the response, and clears the slot.
func (d *Dispatcher) ApproveOnce() {
	request := d.Session.PendingPermission
	if request == nil {
		return
	}
	if d.Session.PendingQuestion != nil {
		d.answerQuestion(request.PermissionID)
		return
	}
	d.sendOrDefer(wire.NewApproval(request.PermissionID, true))
	d.clearPermission()
}

// ApproveAlways answers the pending permission with allow-always semantics
// (keyboard 'a'): the tool is added to the session-wide allow-list so
// future requests for it auto-approve with no prompt.
func (d *Dispatcher) ApproveAlways() {
	request := d.Session.PendingPermission
	if request == nil {
		return
	}
	d.Session.AllowTool(request.ToolName)
	d.sendOrDefer(wire.NewApproval(request.PermissionID, true))
	d.clearPermission()
}

// DenyPermission answers the pending permission with deny semantics
// (keyboard 'n').
func (d *Dispatcher) DenyPermission() {
	request := d.Session.PendingPermission
	if request == nil {
		return
	}
	d.sendOrDefer(wire.NewApproval(request.PermissionID, false))
	d.clearPermission()
}

// CancelPendingPermission emits an outbound cancel for the pending
// permission (keyboard Shift+Escape) and clears the slot without sending
// an approval/denial response.
func (d *Dispatcher) CancelPendingPermission() {
	request := d.Session.PendingPermission
	if request == nil {
		return
	}
	d.sendOrDefer(wire.NewCancelPermission(request.PermissionID))
	d.clearPermission()
}

func (d *Dispatcher) clearPermission() {
	d.Session.PendingPermission = nil
	d.Session.PendingQuestion = nil
}

// answerQuestion serializes the current QuestionData's selections into the
// double-encoded JSON answer map and sends the command_response.
//
// The outer envelope is a normal command_response; its Message field holds
// a second, independently-encoded JSON string (the prompt->answer map).
// This double-encoding is intentional: the server-side tool runner expects
// to decode that string itself. Do not collapse it into a nested object.
func (d *Dispatcher) answerQuestion(requestID string) {
	question := d.Session.PendingQuestion
	if question == nil {
		return
	}
	answers := question.AnswerMap()
	encoded, err := json.Marshal(answers)
	if err != nil {
		d.clearPermission()
		return
	}
	d.sendOrDefer(wire.NewQuestionAnswer(requestID, string(encoded)))
	d.clearPermission()
}

// AdvanceQuestion moves Tab focus to the next question.
func (d *Dispatcher) AdvanceQuestion() {
	q := d.Session.PendingQuestion
	if q == nil || len(q.Questions) == 0 {
		return
	}
	q.CurrentIndex = (q.CurrentIndex + 1) % len(q.Questions)
	q.OptionCursor = 0
}

// MoveOptionCursor moves the option cursor by delta (Up = -1, Down = +1),
// clamped to the current question's option list.
func (d *Dispatcher) MoveOptionCursor(delta int) {
	q := d.Session.PendingQuestion
	if q == nil || len(q.Questions) == 0 {
		return
	}
	options := q.Questions[q.CurrentIndex].Options
	if len(options) == 0 {
		return
	}
	next := q.OptionCursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(options) {
		next = len(options) - 1
	}
	q.OptionCursor = next
}

// ToggleSelectedOption toggles the option under the cursor (Space),
// honoring single- vs multi-select.
func (d *Dispatcher) ToggleSelectedOption() {
	q := d.Session.PendingQuestion
	if q == nil || len(q.Questions) == 0 {
		return
	}
	q.ToggleOption(q.CurrentIndex, q.OptionCursor)
}

// ConfirmQuestion submits the current answer set (Enter).
func (d *Dispatcher) ConfirmQuestion() {
	request := d.Session.PendingPermission
	if request == nil {
		return
	}
	d.answerQuestion(request.PermissionID)
}

// DenyQuestion cancels the question prompt ('n'/N) as a deny.
func (d *Dispatcher) DenyQuestion() {
	d.DenyPermission()
}

// BeginOtherEntry switches the current question into free-text "Other"
// entry mode.
func (d *Dispatcher) BeginOtherEntry() {
	q := d.Session.PendingQuestion
	if q == nil {
		return
	}
	q.EditingOther = true
	q.OtherBuffer = ""
}

// TypeOther appends a character to the "Other" free-text buffer; it is a
// no-op unless EditingOther is set.
func (d *Dispatcher) TypeOther(r rune) {
	q := d.Session.PendingQuestion
	if q == nil || !q.EditingOther {
		return
	}
	q.OtherBuffer += string(r)
}

// EndOtherEntry leaves "Other" entry mode (Enter/Escape while editing).
// When commit is true the buffer becomes the answer for the current
// question; otherwise no answer is recorded.
func (d *Dispatcher) EndOtherEntry(commit bool) {
	q := d.Session.PendingQuestion
	if q == nil || !q.EditingOther {
		return
	}
	q.EditingOther = false
	if commit {
		q.Answers[q.Questions[q.CurrentIndex].Prompt] = q.OtherBuffer
	}
}
