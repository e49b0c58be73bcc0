package honeycomb

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/honeycombio/libhoney-go/transmission"
)

// TextSender implements transmission.Sender by writing each event as a single
// human-readable line to w, optionally coloured for terminals.
type TextSender struct {
	mu sync.Mutex

	w      io.Writer
	colour bool

	responses chan transmission.Response
}

func (t *TextSender) Start() error {
	t.responses = make(chan transmission.Response, 100)
	return nil
}

func (t *TextSender) Stop() error { return nil }

func (t *TextSender) Flush() error { return nil }

func (t *TextSender) Add(ev *transmission.Event) {
	line := t.format(ev)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(line)
	t.SendResponse(transmission.Response{Metadata: ev.Metadata})
}

func (t *TextSender) TxResponses() chan transmission.Response {
	return t.responses
}

func (t *TextSender) SendResponse(r transmission.Response) bool {
	select {
	case t.responses <- r:
	default:
		return true
	}
	return false
}

func (t *TextSender) format(ev *transmission.Event) []byte {
	buf := new(bytes.Buffer)
	_, _ = fmt.Fprintf(buf, "%s %s %.3fms %s",
		ev.Timestamp.Format("15:04:05"),
		t.applyColour(formatTraceID(ev.Data["trace.trace_id"])),
		ev.Data["duration_ms"],
		t.applyColour(fmt.Sprintf("%s", ev.Data["name"])),
	)

	for _, k := range sortedKeys(ev.Data) {
		if exclude(k) {
			continue
		}
		label := k
		if k == "error" && t.colour {
			label = errorHighlight(k)
		}
		_, _ = fmt.Fprintf(buf, " %s=%v", label, ev.Data[k])
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func exclude(k string) bool {
	switch k {
	case "name", "version", "service", "duration_ms":
		return true
	}
	return strings.HasPrefix(k, "trace.") || strings.HasPrefix(k, "meta.")
}

func (t *TextSender) applyColour(value string) string {
	if !t.colour {
		return value
	}
	return applyColour(value)
}

func formatTraceID(raw interface{}) string {
	traceID, ok := raw.(string)
	if !ok || len(traceID) < 5 {
		return "unkwn"
	}
	return traceID[len(traceID)-5:]
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// 256 colour codes readable on a dark background
var colours = func() []uint8 {
	var cs []uint8
	for c := 9; c <= 231; c++ {
		if (c > 14 && c < 21) || (c > 51 && c < 63) || (c > 87 && c < 92) || c == 145 {
			continue
		}
		cs = append(cs, uint8(c))
	}
	return cs
}()

// applyColour picks a colour from a hash of value, so the same trace id or span
// name is always rendered the same way.
func applyColour(value string) string {
	i := crc32.ChecksumIEEE([]byte(value)) % uint32(len(colours))
	return fmt.Sprintf("\033[1;38;5;%dm%s\033[0m", colours[i], value)
}

func errorHighlight(s string) string {
	return fmt.Sprintf("\033[1;37;41m%s\033[0m", s)
}
