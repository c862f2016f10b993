package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectLayout(t *testing.T) {
	assert.Equal(t, LayoutMobile, SelectLayout(767, 768))
	assert.Equal(t, LayoutDesktop, SelectLayout(768, 768))
	assert.Equal(t, LayoutDesktop, SelectLayout(1920, 768))
	assert.Equal(t, LayoutMobile, SelectLayout(0, 768))

	assert.Equal(t, LayoutMobile, SelectLayout(1000, 1110))
	assert.Equal(t, LayoutDesktop, SelectLayout(1110, 1110))

	assert.Equal(t, LayoutMobile, SelectLayout(700, 0), "non-positive breakpoint uses the default")
	assert.Equal(t, LayoutDesktop, SelectLayout(800, -1))
}

func TestLayoutTrackerOnlyReportsCrossings(t *testing.T) {
	tr := NewLayoutTracker(768)
	assert.Equal(t, Layout(""), tr.Applied())

	steps := []struct {
		width   int
		layout  Layout
		changed bool
	}{
		{1200, LayoutDesktop, true},
		{1300, LayoutDesktop, false},
		{768, LayoutDesktop, false},
		{767, LayoutMobile, true},
		{500, LayoutMobile, false},
		{900, LayoutDesktop, true},
	}
	for _, st := range steps {
		layout, changed := tr.Observe(st.width)
		assert.Equal(t, st.layout, layout, "width %d", st.width)
		assert.Equal(t, st.changed, changed, "width %d", st.width)
		assert.Equal(t, st.layout, tr.Applied())
	}
}

func TestLayoutTrackerDefaultBreakpoint(t *testing.T) {
	tr := NewLayoutTracker(0)
	assert.Equal(t, DefaultBreakpoint, tr.Breakpoint())

	layout, changed := tr.Observe(320)
	assert.Equal(t, LayoutMobile, layout)
	assert.True(t, changed)
}
