package internal

import "bytes"

// frameSeparator is the double-delimiter boundary between frames
var frameSeparator = []byte("\n\n")

// FrameDecoder turns raw transport chunks into discrete frames. It keeps
// a rolling buffer so a frame split across two reads decodes exactly like
// the same frame delivered whole. A decoder is not safe for concurrent
// use; the session loop is the only feeder.
type FrameDecoder struct {
	buf []byte
}

// NewFrameDecoder creates an empty decoder
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a chunk to the rolling buffer and returns every complete
// frame now available, in arrival order. The trailing (possibly partial)
// remainder stays buffered for the next chunk. Unknown frames are
// returned as-is; dropping them is the consumer's call.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		idx := bytes.Index(d.buf, frameSeparator)
		if idx < 0 {
			break
		}
		raw := d.buf[:idx]
		d.buf = d.buf[idx+len(frameSeparator):]
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		frames = append(frames, ParseFrame(string(raw)))
	}
	return frames
}

// Pending reports whether a partial frame is still buffered. At stream
// termination any such remainder is simply dropped with the decoder.
func (d *FrameDecoder) Pending() bool {
	return len(bytes.TrimSpace(d.buf)) > 0
}
