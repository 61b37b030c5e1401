// Package wire contains the pkt-line framing and side-band
// demultiplexing needed to recover pack bytes from a smart-HTTP
// response: enough of the git wire protocol to read, not to speak it
// in full.
package wire

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Special pkt-line lengths
const (
	flushLen = 0
	delimLen = 1
)

// Side-band channel bytes
const (
	SidebandData     = 1
	SidebandProgress = 2
	SidebandError    = 3
)

// ErrInvalidPktLine is returned when a frame's length header can't be parsed
var ErrInvalidPktLine = errors.New("invalid pkt-line")

// Flush is the sentinel pkt-line marking a section boundary (0000)
var Flush = []byte(nil)

// EncodePktLine frames data as "<4-hex-len>data", where len counts the
// 4 header bytes too
func EncodePktLine(data []byte) []byte {
	length := len(data) + 4
	out := make([]byte, 0, length)
	out = append(out, []byte(fmt.Sprintf("%04x", length))...)
	out = append(out, data...)
	return out
}

// EncodeFlush returns the flush-pkt bytes ("0000")
func EncodeFlush() []byte { return []byte("0000") }

// EncodeDelim returns the delimiter-pkt bytes ("0001")
func EncodeDelim() []byte { return []byte("0001") }

// Pkt is one parsed pkt-line frame
type Pkt struct {
	// Flush is true for a 0000 frame, Delim is true for a 0001 frame.
	// When either is true, Payload is always empty.
	Flush   bool
	Delim   bool
	Payload []byte
}

// ReadPktLines parses a full buffer of back-to-back pkt-line frames
func ReadPktLines(data []byte) ([]Pkt, error) {
	var out []Pkt
	cursor := 0
	for cursor < len(data) {
		if cursor+4 > len(data) {
			return nil, xerrors.Errorf("truncated length header: %w", ErrInvalidPktLine)
		}
		lengthHex := data[cursor : cursor+4]
		length, err := parseHexLen(lengthHex)
		if err != nil {
			return nil, xerrors.Errorf("could not parse pkt-line length %q: %w", lengthHex, err)
		}
		cursor += 4

		switch length {
		case flushLen:
			out = append(out, Pkt{Flush: true})
			continue
		case delimLen:
			out = append(out, Pkt{Delim: true})
			continue
		}

		payloadLen := length - 4
		if cursor+payloadLen > len(data) {
			return nil, xerrors.Errorf("pkt-line payload truncated: %w", ErrInvalidPktLine)
		}
		out = append(out, Pkt{Payload: data[cursor : cursor+payloadLen]})
		cursor += payloadLen
	}
	return out, nil
}

func parseHexLen(b []byte) (int, error) {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range raw {
		n = n<<8 | int(v)
	}
	return n, nil
}

// SidebandDemux concatenates the data-channel (channel 1) payloads of
// a sequence of pkt-lines, recovering the raw pack bytes from a
// side-band-64k multiplexed response. Progress (2) channel frames are
// dropped; the first error (3) channel frame is surfaced as an error
// carrying its text, even when that text is empty.
func SidebandDemux(pkts []Pkt) (packBytes []byte, err error) {
	var out []byte
	for _, p := range pkts {
		if p.Flush || p.Delim || len(p.Payload) == 0 {
			continue
		}
		channel := p.Payload[0]
		data := p.Payload[1:]
		switch channel {
		case SidebandData:
			out = append(out, data...)
		case SidebandProgress:
			// progress text, nothing to recover from it
		case SidebandError:
			return nil, xerrors.Errorf("remote error: %s", string(data))
		default:
			// not side-band multiplexed at all; treat the whole
			// payload as pack bytes the way a plain pack stream would
			out = append(out, p.Payload...)
		}
	}
	return out, nil
}
