package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_DrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "evaluating 1/3")

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "evaluating 1/3")
	}, 2*time.Second, 10*time.Millisecond)

	s.Update("evaluating 2/3")
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "evaluating 2/3")
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()

	text := out.String()
	assert.True(t, strings.HasSuffix(text, "\r"+strings.Repeat(" ", len("evaluating 2/3")+2)+"\r"))
}

func TestSpinner_ClearsWidestMessage(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "a much longer first message")
	s.Update("short")
	s.Stop()

	assert.True(t, strings.HasSuffix(out.String(), strings.Repeat(" ", len("a much longer first message")+2)+"\r"))
}
