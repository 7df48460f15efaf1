package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/spoq/spoq-tui/internal/engine/cache"
	"github.com/spoq/spoq-tui/internal/engine/model"
	"github.com/spoq/spoq-tui/internal/engine/tracker"
	"github.com/spoq/spoq-tui/internal/wire"
)

// Outbound is anything the dispatcher can hand off to the transport layer
// for writing onto the session channel. It is an any-typed payload (one of
// the wire.* envelope structs) because the dispatcher has no business
// knowing how the transport frames or serializes it.
type Outbound struct {
	Payload any
}

// StreamStats tracks per-stream token accounting, reset on every
// StreamComplete or StreamError.
type StreamStats struct {
	StartTime        time.Time
	LastEventTime    time.Time
	LastLatency      time.Duration
	CumulativeTokens int
	TokensPerSecond  float64
}

func (s *StreamStats) reset() {
	*s = StreamStats{}
}

// recordToken updates cumulative token count and tokens/sec using the
// spec's deliberately approximate 4-chars-per-token heuristic.
func (s *StreamStats) recordToken(token string, now time.Time) {
	if s.StartTime.IsZero() {
		s.StartTime = now
	}
	if !s.LastEventTime.IsZero() {
		s.LastLatency = now.Sub(s.LastEventTime)
	}
	s.LastEventTime = now
	s.CumulativeTokens += estimateTokens(token)
	elapsed := now.Sub(s.StartTime).Seconds()
	if elapsed > 1e-6 {
		s.TokensPerSecond = float64(s.CumulativeTokens) / elapsed
	} else {
		s.TokensPerSecond = 0
	}
}

func estimateTokens(token string) int {
	return int(math.Ceil(float64(len(token)) / 4))
}

// Dispatcher is the single owner of mutable engine state: the cache, one
// tracker per thread, and session-wide dialog/connection state. It drains
// Events in FIFO order; callers (transports, timers, the UI collaborator)
// never touch the cache directly.
type Dispatcher struct {
	Cache   *cache.Cache
	Session *model.SessionState

	trackers map[string]*tracker.Tracker
	stats    map[string]*StreamStats

	ActiveThreadID string
	Dirty          bool
	StreamError    string
	CurrentTick    int64

	// deferred holds outbound messages queued while the session channel is
	// down, flushed on WsConnected.
	deferred []Outbound

	Events   chan AppEvent
	Outbound chan Outbound

	log *slog.Logger
}

// New constructs a Dispatcher with a ready-to-use cache and session state.
func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Cache:    cache.New(),
		Session:  model.NewSessionState(),
		trackers: make(map[string]*tracker.Tracker),
		stats:    make(map[string]*StreamStats),
		// Events is buffered generously rather than truly unbounded (Go has
		// no unbounded channel); producers are expected to be rate-limited
		// by their transport, and the core never drops an event once
		// accepted.
		Events:   make(chan AppEvent, 4096),
		Outbound: make(chan Outbound, 64),
		log:      log,
	}
}

func (d *Dispatcher) trackerFor(threadID string) *tracker.Tracker {
	threadID = d.Cache.Resolve(threadID)
	t, ok := d.trackers[threadID]
	if !ok {
		t = tracker.New()
		d.trackers[threadID] = t
	}
	return t
}

func (d *Dispatcher) statsFor(threadID string) *StreamStats {
	threadID = d.Cache.Resolve(threadID)
	s, ok := d.stats[threadID]
	if !ok {
		s = &StreamStats{}
		d.stats[threadID] = s
	}
	return s
}

// Run drains Events until ctx is canceled or the channel is closed. Every
// event marks Dirty; callers render a snapshot after draining a batch.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.Events:
			if !ok {
				return
			}
			d.apply(event)
			d.Dirty = true
		}
	}
}

func (d *Dispatcher) send(payload any) {
	select {
	case d.Outbound <- Outbound{Payload: payload}:
	default:
		d.log.Warn("outbound channel full, dropping message")
	}
}

// sendOrDefer writes to the outbound channel if the session is connected,
// else queues the message to flush once WsConnected arrives.
func (d *Dispatcher) sendOrDefer(payload any) {
	if d.Session.Connection != model.ConnectionConnected {
		d.deferred = append(d.deferred, Outbound{Payload: payload})
		return
	}
	d.send(payload)
}

func (d *Dispatcher) apply(event AppEvent) {
	switch event.Kind {
	case KindStreamStarted:
		d.onStreamStarted(event.Payload.(StreamStarted))
	case KindStreamToken:
		d.onStreamToken(event.Payload.(StreamToken))
	case KindReasoningToken:
		d.onReasoningToken(event.Payload.(ReasoningToken))
	case KindStreamComplete:
		d.onStreamComplete(event.Payload.(StreamComplete))
	case KindStreamError:
		d.onStreamError(event.Payload.(StreamError))

	case KindToolStarted:
		p := event.Payload.(ToolStarted)
		d.Cache.StartToolEvent(p.ThreadID, p.ToolCallID, p.FunctionName)
		d.trackerFor(p.ThreadID).RegisterToolStarted(p.ToolCallID, p.FunctionName, d.CurrentTick)
	case KindToolExecuting:
		p := event.Payload.(ToolExecuting)
		d.Cache.SetToolDisplayName(p.ThreadID, p.ToolCallID, p.DisplayName)
		d.trackerFor(p.ThreadID).SetToolExecuting(p.ToolCallID, p.DisplayName)
	case KindToolArgumentChunk:
		p := event.Payload.(ToolArgumentChunk)
		d.Cache.AppendToolArgument(p.ThreadID, p.ToolCallID, p.Chunk)
	case KindToolCompleted:
		p := event.Payload.(ToolCompleted)
		if p.Success {
			d.Cache.CompleteToolEvent(p.ThreadID, p.ToolCallID)
		} else {
			d.Cache.FailToolEvent(p.ThreadID, p.ToolCallID)
		}
		d.Cache.SetToolResult(p.ThreadID, p.ToolCallID, p.Result, !p.Success)
		d.trackerFor(p.ThreadID).CompleteToolWithSummary(p.ToolCallID, p.Success, p.Summary, d.CurrentTick)

	case KindSubagentStarted:
		p := event.Payload.(SubagentStarted)
		d.Cache.StartSubagentEvent(p.ThreadID, p.TaskID, p.SubagentType, p.Description)
		d.trackerFor(p.ThreadID).RegisterSubagentStarted(p.TaskID, p.SubagentType, p.Description, d.CurrentTick)
	case KindSubagentProgress:
		p := event.Payload.(SubagentProgress)
		d.Cache.UpdateSubagentProgress(p.ThreadID, p.TaskID, p.Message)
		d.trackerFor(p.ThreadID).UpdateSubagentProgress(p.TaskID, p.Message)
	case KindSubagentCompleted:
		p := event.Payload.(SubagentCompleted)
		d.Cache.CompleteSubagentEvent(p.ThreadID, p.TaskID, p.Summary, p.ToolCallCount)
		d.trackerFor(p.ThreadID).CompleteSubagent(p.TaskID, p.Summary, p.ToolCallCount, d.CurrentTick)

	case KindThreadCreated:
		d.onThreadCreated(event.Payload.(ThreadCreated))
	case KindWsThreadCreated:
		p := event.Payload.(WsThreadCreated)
		thread := p.Thread
		d.Cache.UpsertThread(&thread)
	case KindThreadMetadataUpdated:
		p := event.Payload.(ThreadMetadataUpdated)
		d.Cache.UpdateThreadMetadata(p.ThreadID, p.Title, p.Description, p.HasDescription)
	case KindThreadStatusUpdate:
		p := event.Payload.(ThreadStatusUpdate)
		if thread, ok := d.Cache.GetThread(p.ThreadID); ok {
			thread.Status = p.Status
		}
	case KindThreadModeUpdate:
		p := event.Payload.(ThreadModeUpdate)
		if thread, ok := d.Cache.GetThread(p.ThreadID); ok {
			thread.Mode = p.Mode
		}
	case KindThreadVerified:
		p := event.Payload.(ThreadVerified)
		if thread, ok := d.Cache.GetThread(p.ThreadID); ok {
			thread.Verified = p.Verified
			now := time.Now()
			thread.VerifiedAt = &now
		}

	case KindPhaseProgressUpdate:
		// Phase progress is read by the dashboard directly off the event
		// stream; the dispatcher's job here is limited to keeping the
		// thread's status in sync when a thread id is present.
		p := event.Payload.(PhaseProgressUpdate)
		if p.ThreadID != "" {
			if thread, ok := d.Cache.GetThread(p.ThreadID); ok {
				thread.Status = p.Status
			}
		}
	case KindPlanApprovalRequest:
		// Stored by the caller (the UI collaborator keeps its own
		// dashboard index); the dispatcher only needs to route dirty.

	case KindPermissionRequested:
		d.onPermissionRequested(event.Payload.(PermissionRequested))
	case KindPendingQuestionAnswered:
		// Handled via ConfirmQuestion/DenyQuestion (permission.go), not
		// through the event loop directly; kept as a Kind for completeness
		// of the tagged union.
	case KindOAuthConsentRequired:
		p := event.Payload.(OAuthConsentRequired)
		d.Session.OAuthRequired = &p.Requirement
		d.Session.OAuthURL = p.URL
	case KindContextCompacted:
		p := event.Payload.(ContextCompacted)
		d.Session.ContextTokensUsed = p.TokensUsed
		d.Session.ContextTokenLimit = p.TokenLimit
	case KindUsageReceived:
		p := event.Payload.(UsageReceived)
		d.Session.ContextTokensUsed = p.TokensUsed
		d.Session.ContextTokenLimit = p.TokenLimit
	case KindSkillsInjected:
		p := event.Payload.(SkillsInjected)
		d.Session.Skills = p.Skills

	case KindWsConnected:
		d.Session.Connection = model.ConnectionConnected
		d.StreamError = ""
		d.flushDeferred()
	case KindWsDisconnected:
		d.Session.Connection = model.ConnectionDisconnected
	case KindWsReconnecting:
		d.Session.Connection = model.ConnectionConnecting
	case KindWsParseError:
		p := event.Payload.(WsParseError)
		d.log.Warn("failed to parse session channel message", "error", p.Error)

	case KindMessagesLoaded:
		p := event.Payload.(MessagesLoaded)
		d.Cache.SetMessages(p.ThreadID, p.Messages)
	case KindMessagesLoadError:
		p := event.Payload.(MessagesLoadError)
		// Deliberately duplicated: an inline banner plus the global
		// stream_error, matching the ambiguity the spec leaves open
		// rather than picking one and dropping the other.
		d.Cache.AddErrorSimple(p.ThreadID, p.Error)
		d.StreamError = p.Error

	case KindTick:
		d.CurrentTick = event.Payload.(Tick).Count
	}
}

func (d *Dispatcher) onStreamStarted(p StreamStarted) {
	d.statsFor(p.ThreadID).reset()
}

func (d *Dispatcher) onStreamToken(p StreamToken) {
	d.Cache.AppendTextToken(p.ThreadID, p.Token)
	d.statsFor(p.ThreadID).recordToken(p.Token, time.Now())
}

func (d *Dispatcher) onReasoningToken(p ReasoningToken) {
	d.Cache.AppendReasoningToken(p.ThreadID, p.Token)
}

func (d *Dispatcher) onStreamComplete(p StreamComplete) {
	d.Cache.FinalizeMessage(p.ThreadID, p.MessageID)
	d.statsFor(p.ThreadID).reset()
	d.trackerFor(p.ThreadID).Clear()
}

func (d *Dispatcher) onStreamError(p StreamError) {
	d.StreamError = p.Error
	d.Cache.AddErrorSimple(p.ThreadID, p.Error)
	d.statsFor(p.ThreadID).reset()
	d.trackerFor(p.ThreadID).Clear()
}

func (d *Dispatcher) onThreadCreated(p ThreadCreated) {
	d.Cache.ReconcileThreadID(p.PendingID, p.RealID, p.Title)
	if d.ActiveThreadID == p.PendingID {
		d.ActiveThreadID = p.RealID
	}
}

// onPermissionRequested implements the allow-list auto-approval rule and
// AskUserQuestion special-casing from §4.2.
func (d *Dispatcher) onPermissionRequested(p PermissionRequested) {
	request := p.Request
	if d.Session.IsAllowed(request.ToolName) {
		d.sendOrDefer(wire.NewApproval(request.PermissionID, true))
		return
	}
	d.Session.PendingPermission = request
	if request.ToolName == "AskUserQuestion" {
		d.Session.PendingQuestion = model.NewQuestionData(decodeQuestions(request.ToolInput))
	}
}

// decodeQuestions extracts the `questions` array out of a permission
// request's opaque tool_input.
func decodeQuestions(toolInput map[string]any) []model.Question {
	raw, ok := toolInput["questions"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var decoded []struct {
		Prompt      string `json:"prompt"`
		Header      string `json:"header"`
		Options     []struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"options"`
		MultiSelect bool `json:"multiSelect"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil
	}
	questions := make([]model.Question, 0, len(decoded))
	for _, q := range decoded {
		options := make([]model.QuestionOption, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, model.QuestionOption{Label: o.Label, Description: o.Description})
		}
		questions = append(questions, model.Question{
			Prompt:      q.Prompt,
			Header:      q.Header,
			Options:     options,
			MultiSelect: q.MultiSelect,
		})
	}
	return questions
}

func (d *Dispatcher) flushDeferred() {
	pending := d.deferred
	d.deferred = nil
	for _, out := range pending {
		d.send(out.Payload)
	}
}

// StatsFor exposes a thread's current stream statistics for rendering.
func (d *Dispatcher) StatsFor(threadID string) StreamStats {
	return *d.statsFor(threadID)
}

// TrackerFor exposes a thread's tracker for rendering.
func (d *Dispatcher) TrackerFor(threadID string) *tracker.Tracker {
	return d.trackerFor(threadID)
}
