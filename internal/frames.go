package internal

import (
	"encoding/json"
	"strings"
)

// FrameKind classifies one decoded stream frame. The set is closed:
// anything the classifier does not recognize becomes FrameUnknown and is
// dropped by the consumer.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameMetadata
	FrameTextDelta
	FrameEnd
)

func (k FrameKind) String() string {
	switch k {
	case FrameMetadata:
		return "metadata"
	case FrameTextDelta:
		return "text-delta"
	case FrameEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Frame is one discrete event decoded from the streaming transport
type Frame struct {
	Kind FrameKind
	// Text carries the fragment of a text-delta frame
	Text string
	// Language carries the detected response language of a metadata frame
	Language string
}

// Frame tags on the wire. A frame is "<tag>: <json payload>" except for
// the bare end marker.
const (
	tagData = "data"
	tagMeta = "meta"
	tagEnd  = "end"
)

type deltaPayload struct {
	Text string `json:"text"`
}

type metaPayload struct {
	Language string `json:"lang"`
}

// ParseFrame classifies one complete frame string. Frames with missing,
// unrecognized, or undecodable payloads come back as FrameUnknown.
func ParseFrame(raw string) Frame {
	raw = strings.TrimSpace(raw)
	if raw == tagEnd {
		return Frame{Kind: FrameEnd}
	}

	tag, payload, found := strings.Cut(raw, ":")
	if !found {
		return Frame{Kind: FrameUnknown}
	}
	payload = strings.TrimSpace(payload)

	switch strings.TrimSpace(tag) {
	case tagData:
		var p deltaPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return Frame{Kind: FrameUnknown}
		}
		return Frame{Kind: FrameTextDelta, Text: p.Text}
	case tagMeta:
		var p metaPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return Frame{Kind: FrameUnknown}
		}
		return Frame{Kind: FrameMetadata, Language: p.Language}
	default:
		return Frame{Kind: FrameUnknown}
	}
}
