package protocol

import (
	"fmt"
	"strconv"
)

// Encode renders msg as its wire payload.
//
// The color field is written as its signed 32-bit reinterpretation so that
// peers parsing a plain int32 accept every value this package emits.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Clear:
		return []byte(ClearPayload), nil
	case *Clear:
		if m == nil {
			return nil, ErrNilMessage
		}
		return []byte(ClearPayload), nil
	case Segment:
		return encodeSegment(m)
	case *Segment:
		if m == nil {
			return nil, ErrNilMessage
		}
		return encodeSegment(*m)
	case nil:
		return nil, ErrNilMessage
	default:
		return nil, fmt.Errorf("protocol: unsupported message %T", msg)
	}
}

// MustEncode is Encode for messages already known to be valid.
func MustEncode(msg Message) []byte {
	out, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return out
}

func encodeSegment(s Segment) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 64)
	buf = strconv.AppendInt(buf, int64(s.Start.X), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(s.Start.Y), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(s.End.X), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(s.End.Y), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(int32(s.Color)), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(s.Thickness), 10)
	return buf, nil
}
