package assistant

import (
	"encoding/json"
	"strings"
)

type partialReply struct {
	PlainText string        `json:"plainText"`
	Products  []partialPick `json:"products"`
}

type partialPick struct {
	ProductID      string `json:"product_id"`
	Recommendation string `json:"recommendation"`
}

// tryParsePartial recovers the deepest well-formed structure from a
// possibly truncated JSON buffer. It first repairs the buffer by closing
// open strings/containers; if the tail is still unparseable (a half-written
// key or bare literal), it cuts back to the last safe boundary and closes
// again. Returns nil when nothing can be recovered yet.
func tryParsePartial(buf string) *partialReply {
	start := strings.IndexByte(buf, '{')
	if start < 0 {
		return nil
	}
	s := buf[start:]
	if r := decodePartial(closeTruncated(s)); r != nil {
		return r
	}
	return decodePartial(cutAndClose(s))
}

func decodePartial(s string) *partialReply {
	if s == "" {
		return nil
	}
	var r partialReply
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil
	}
	return &r
}

// closeTruncated closes a dangling escape, an open string, strips a
// trailing comma, completes a dangling ":" with null, and closes every
// open container.
func closeTruncated(s string) string {
	stack, inStr, esc, _, _ := scanJSON(s)

	out := s
	if esc {
		out = out[:len(out)-1]
	}
	if inStr {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(strings.TrimRight(out, " \t\r\n"), ":") {
		out += "null"
	}
	return closeStack(out, stack)
}

// cutAndClose drops everything after the last boundary known to end a
// complete member (just after '{', '[' or before a top-of-string ','),
// then closes the remaining containers.
func cutAndClose(s string) string {
	_, _, _, lastSafe, safeStack := scanJSON(s)
	if lastSafe < 0 {
		return ""
	}
	out := strings.TrimRight(s[:lastSafe], " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	return closeStack(out, safeStack)
}

func scanJSON(s string) (stack []byte, inStr, esc bool, lastSafe int, safeStack []byte) {
	lastSafe = -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if esc {
				esc = false
				continue
			}
			switch c {
			case '\\':
				esc = true
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, c)
			lastSafe = i + 1
			safeStack = append(safeStack[:0:0], stack...)
		case ',':
			lastSafe = i
			safeStack = append(safeStack[:0:0], stack...)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, inStr, esc, lastSafe, safeStack
}

func closeStack(out string, stack []byte) string {
	var b strings.Builder
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
