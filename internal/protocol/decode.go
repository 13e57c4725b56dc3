package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const segmentFieldCount = 6

var segmentFieldNames = [segmentFieldCount]string{
	"startX", "startY", "endX", "endY", "color", "thickness",
}

// Decode parses one wire payload. It never returns a partially filled
// message: either every field validates or the error wraps ErrMalformed.
func Decode(payload []byte) (Message, error) {
	if len(payload) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: payload %d bytes exceeds %d", ErrMalformed, len(payload), MaxDatagramSize)
	}
	if string(payload) == ClearPayload {
		return Clear{}, nil
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not utf-8", ErrMalformed)
	}

	tokens := strings.FieldsFunc(string(payload), isASCIISpace)
	if len(tokens) != segmentFieldCount {
		return nil, fmt.Errorf("%w: want %d fields, got %d", ErrMalformed, segmentFieldCount, len(tokens))
	}

	var fields [segmentFieldCount]int32
	for i, tok := range tokens {
		if i == 4 {
			color, err := parseColor(tok)
			if err != nil {
				return nil, err
			}
			fields[i] = int32(color)
			continue
		}
		v, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s %q is not an int32", ErrMalformed, segmentFieldNames[i], tok)
		}
		fields[i] = int32(v)
	}

	seg := Segment{
		Start:     Point{X: fields[0], Y: fields[1]},
		End:       Point{X: fields[2], Y: fields[3]},
		Color:     RGB(uint32(fields[4])),
		Thickness: fields[5],
	}
	if seg.Thickness < 1 {
		return nil, fmt.Errorf("%w: thickness %d < 1", ErrMalformed, seg.Thickness)
	}
	return seg, nil
}

// parseColor accepts both the signed and the unsigned rendering of a
// 32-bit packed color.
func parseColor(tok string) (uint32, error) {
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field color %q is not a 32-bit value", ErrMalformed, tok)
	}
	return uint32(v), nil
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
