package presenter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

func TestDelayFor(t *testing.T) {
	cfg := DefaultTyping()
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 15 * time.Millisecond},
		{1, 15 * time.Millisecond},
		{999, 15 * time.Millisecond},
		{1000, time.Millisecond},
		{5000, time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.DelayFor(tt.n), "n=%d", tt.n)
	}
}

func TestRenderStateInvariant(t *testing.T) {
	text := "héllo `x` **y**"
	s := NewRenderState(text)
	assert.Equal(t, len([]rune(text)), s.Len())

	for !s.Done() {
		s.Advance(markdown.Simple)
		assert.LessOrEqual(t, s.Cursor, s.Len())
		assert.Equal(t, markdown.Render(s.Prefix()), s.Displayed)
	}
	assert.Equal(t, text, s.Prefix())

	s.Advance(markdown.Simple)
	assert.Equal(t, s.Len(), s.Cursor)
}

func TestRenderStateFinish(t *testing.T) {
	s := NewRenderState("ab<c")
	s.Advance(markdown.Simple)
	s.Finish(markdown.Simple)
	assert.True(t, s.Done())
	assert.Equal(t, "ab&lt;c", s.Displayed)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(t.Context(), time.Millisecond))
}

func TestRunesPerFrame(t *testing.T) {
	cfg := DefaultTyping()
	assert.Equal(t, 1, cfg.RunesPerFrame(10))
	assert.Equal(t, 16, cfg.RunesPerFrame(1000))

	cfg.FrameInterval = 0
	assert.Equal(t, 1, cfg.RunesPerFrame(1000))

	cfg.LongDelay = 0
	assert.Equal(t, 1200, cfg.RunesPerFrame(1200))
}

func TestAdvanceByReturnsRevealedText(t *testing.T) {
	s := NewRenderState("héllo")
	assert.Equal(t, "hé", s.AdvanceBy(2, markdown.Simple))
	assert.Equal(t, "llo", s.AdvanceBy(10, markdown.Simple))
	assert.Equal(t, "", s.AdvanceBy(1, markdown.Simple))
	assert.True(t, s.Done())
}

func TestDiffHTMLKeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		prev, next string
		keep       int
	}{
		{"", "abc", 0},
		{"ab", "abc", 2},
		{"<em>*ab</em>", "<strong>ab</strong>", 1},
		{"xé", "xè", 1},
		{"abc", "ab", 2},
	}
	for _, tt := range tests {
		p := diffHTML(tt.prev, tt.next)
		assert.Equal(t, tt.keep, p.Keep, "%q -> %q", tt.prev, tt.next)
		assert.Equal(t, tt.next, p.Apply(tt.prev))
	}
}
