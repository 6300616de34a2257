package backend

import (
	"iter"
	"strings"
)

// ChunkType identifies the kind of payload carried by a Chunk.
type ChunkType string

const (
	// ChunkContent is an incremental piece of produced content.
	ChunkContent ChunkType = "content"
	// ChunkToolCall is an incremental tool call delta (name or argument fragment).
	ChunkToolCall ChunkType = "tool_call"
	// ChunkUsage carries the vendor's raw usage block (typically the final data chunk).
	ChunkUsage ChunkType = "usage"
	// ChunkDone is the terminal sentinel; it is yielded exactly once.
	ChunkDone ChunkType = "done"
)

// ToolCallDelta is an incremental update to a tool call being streamed.
// ID and Name appear only on the first delta for a given index; later deltas
// carry argument fragments.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is a single ordered element of a generation's output sequence.
type Chunk struct {
	Type         ChunkType      `json:"type"`
	Content      string         `json:"content,omitempty"`
	ToolCall     *ToolCallDelta `json:"tool_call,omitempty"`
	RawUsage     map[string]any `json:"raw_usage,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"` // present on ChunkDone
}

// Stream is the uniform lazy sequence of chunks for one generation. Within a
// stream, chunks are strictly ordered, never duplicated, and terminated by
// exactly one ChunkDone.
//
// Callers must consume the stream, either by ranging over Iter (breaking out
// early is fine) or by calling Collect. The producing adapter may hold open
// resources (an HTTP response body) that are released only when the iterator
// finishes or the loop is abandoned.
type Stream struct {
	iterator iter.Seq2[Chunk, error]
}

// NewStream wraps a raw chunk iterator. The iterator yields chunks with a
// nil error for normal deltas and a non-nil error to signal a mid-stream
// failure, after which it must stop.
func NewStream(iterator iter.Seq2[Chunk, error]) *Stream {
	return &Stream{iterator: iterator}
}

// NewSyntheticStream presents an already-complete result as a chunk
// sequence. Content is emitted in rune-aligned pieces of at most chunkSize
// bytes, followed by tool calls, the raw usage block, and the done sentinel.
// A chunkSize <= 0 emits the content as a single chunk.
func NewSyntheticStream(result *Result, chunkSize int) *Stream {
	iterator := func(yield func(Chunk, error) bool) {
		for _, piece := range splitContent(result.Content, chunkSize) {
			if !yield(Chunk{Type: ChunkContent, Content: piece}, nil) {
				return
			}
		}

		for index, call := range result.ToolCalls {
			delta := &ToolCallDelta{
				Index:     index,
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			}
			if !yield(Chunk{Type: ChunkToolCall, ToolCall: delta}, nil) {
				return
			}
		}

		if len(result.RawUsage) > 0 {
			if !yield(Chunk{Type: ChunkUsage, RawUsage: result.RawUsage}, nil) {
				return
			}
		}

		yield(Chunk{Type: ChunkDone, FinishReason: result.FinishReason}, nil)
	}

	return NewStream(iterator)
}

// splitContent cuts content into rune-aligned pieces of at most size bytes.
func splitContent(content string, size int) []string {
	if content == "" {
		return nil
	}
	if size <= 0 || len(content) <= size {
		return []string{content}
	}

	var pieces []string
	var builder strings.Builder
	for _, r := range content {
		if builder.Len() > 0 && builder.Len()+len(string(r)) > size {
			pieces = append(pieces, builder.String())
			builder.Reset()
		}
		builder.WriteRune(r)
	}
	if builder.Len() > 0 {
		pieces = append(pieces, builder.String())
	}
	return pieces
}

// Iter returns the underlying iterator for range-over-func loops.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { ... }
//	    fmt.Print(chunk.Content)
//	}
func (s *Stream) Iter() iter.Seq2[Chunk, error] {
	return s.iterator
}

// Collect consumes the entire stream and returns the accumulated Result.
// A mid-stream error terminates collection and returns the partial result
// alongside the error.
func (s *Stream) Collect() (*Result, error) {
	accumulated := &Result{}
	var builders []toolCallBuilder
	var content strings.Builder

	for chunk, err := range s.iterator {
		if err != nil {
			accumulated.Content = content.String()
			accumulated.ToolCalls = finalizeToolCalls(builders)
			return accumulated, err
		}

		switch chunk.Type {
		case ChunkContent:
			content.WriteString(chunk.Content)
		case ChunkToolCall:
			if chunk.ToolCall != nil {
				builders = accumulateToolCallDelta(builders, chunk.ToolCall)
			}
		case ChunkUsage:
			accumulated.RawUsage = chunk.RawUsage
		case ChunkDone:
			accumulated.FinishReason = chunk.FinishReason
		}
	}

	accumulated.Content = content.String()
	accumulated.ToolCalls = finalizeToolCalls(builders)
	return accumulated, nil
}

// toolCallBuilder accumulates deltas into one complete ToolCall.
type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

func accumulateToolCallDelta(builders []toolCallBuilder, delta *ToolCallDelta) []toolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, toolCallBuilder{})
	}

	builder := &builders[delta.Index]
	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}
	return builders
}

func finalizeToolCalls(builders []toolCallBuilder) []ToolCall {
	var calls []ToolCall
	for index := range builders {
		calls = append(calls, ToolCall{
			ID:        builders[index].id,
			Name:      builders[index].name,
			Arguments: builders[index].arguments.String(),
		})
	}
	return calls
}
