package model

// Segment is a positional unit inside a message body. It is implemented by
// *TextSegment, *ToolEvent, and *SubagentEvent; segments never merge across
// these kinds, only text tokens fuse with a trailing TextSegment.
type Segment interface {
	segment()
}

// TextSegment holds a run of fused text tokens.
type TextSegment struct {
	Content string
}

func (*TextSegment) segment() {}

func (*ToolEvent) segment() {}

func (*SubagentEvent) segment() {}
