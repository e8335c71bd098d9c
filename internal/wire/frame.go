// Package wire implements the master/peer message framing used by the
// message-passing transport variant (spec.md §4.5), grounded on
// original_source/slaves_mpi.c's JM_MPI_COMMAND enum and on the
// teacher's protocol/frame_codec.go length-prefixed binary encoding
// style (big-endian length header, explicit incomplete-frame handling
// for stream reassembly).
//
// Author: momentics <momentics@gmail.com>
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// Tag identifies a wire message, numbered to match
// original_source/slaves_mpi.c's JM_MPI_COMMAND enum exactly so a log
// line naming a tag value means the same thing on both sides.
type Tag uint8

const (
	TagTerminate Tag = iota // the peer should terminate
	TagPutOffset            // buffer offset the following PUT_DATA will write to
	TagPutData               // data to write at the most recent PUT_OFFSET
	TagGet                   // buffer offset to read from
	TagResponse              // data sent from peer to master in reply to GET
)

func (t Tag) String() string {
	switch t {
	case TagTerminate:
		return "TERMINATE"
	case TagPutOffset:
		return "PUT_OFFSET"
	case TagPutData:
		return "PUT_DATA"
	case TagGet:
		return "GET"
	case TagResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// ErrIncompleteFrame is returned by Decode when raw doesn't yet hold a
// full frame; callers should read more bytes and retry, mirroring the
// teacher's DecodeFrameFromBytes incomplete-frame convention (nil, 0, nil)
// made explicit here as a sentinel error instead.
var ErrIncompleteFrame = errors.New("wire: incomplete frame")

// ErrOversizeFrame bounds a single frame's payload the way the teacher's
// MaxFramePayload guards against resource exhaustion from a malformed
// peer.
var ErrOversizeFrame = errors.New("wire: payload exceeds maximum frame size")

// MaxPayload is generous enough for one full page plus its 8-byte
// offset prefix at any page size the engine configures.
const MaxPayload = 64 << 20

// Frame is one on-wire message: a tag plus an opaque payload whose
// meaning depends on the tag (an 8-byte offset for PUT_OFFSET/GET, raw
// page bytes for PUT_DATA/RESPONSE, nothing for TERMINATE).
type Frame struct {
	Tag     Tag
	Payload []byte
}

// Encode serializes f as [1-byte tag][8-byte big-endian length][payload].
func Encode(f Frame) []byte {
	buf := make([]byte, 9+len(f.Payload))
	buf[0] = byte(f.Tag)
	binary.BigEndian.PutUint64(buf[1:9], uint64(len(f.Payload)))
	copy(buf[9:], f.Payload)
	return buf
}

// Decode parses one frame from the front of raw, returning the frame and
// the number of bytes consumed. If raw doesn't yet hold a complete
// frame, it returns ErrIncompleteFrame and the caller should read more.
func Decode(raw []byte) (Frame, int, error) {
	if len(raw) < 9 {
		return Frame{}, 0, ErrIncompleteFrame
	}
	tag := Tag(raw[0])
	length := binary.BigEndian.Uint64(raw[1:9])
	if length > MaxPayload {
		return Frame{}, 0, ErrOversizeFrame
	}
	total := 9 + int(length)
	if len(raw) < total {
		return Frame{}, 0, ErrIncompleteFrame
	}
	payload := make([]byte, length)
	copy(payload, raw[9:total])
	return Frame{Tag: tag, Payload: payload}, total, nil
}

// EncodeOffset builds a PUT_OFFSET or GET frame carrying a single
// big-endian uint64 offset, the payload shape slaves_mpi.c sends ahead
// of PUT_DATA / in place of a separate GET body.
func EncodeOffset(tag Tag, offset uint64) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, offset)
	return Encode(Frame{Tag: tag, Payload: payload})
}

// DecodeOffset extracts the uint64 offset from a PUT_OFFSET/GET frame's payload.
func DecodeOffset(f Frame) (uint64, error) {
	if len(f.Payload) != 8 {
		return 0, errors.New("wire: offset frame payload must be 8 bytes")
	}
	return binary.BigEndian.Uint64(f.Payload), nil
}

// ReadFrame reads one frame from a stream, for transports (net.Conn)
// that can't hand Decode a whole buffer up front the way a
// already-received datagram could.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	tag := Tag(header[0])
	length := binary.BigEndian.Uint64(header[1:9])
	if length > MaxPayload {
		return Frame{}, ErrOversizeFrame
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Tag: tag, Payload: payload}, nil
}
