package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/bindkit/internal/notify"
)

func TestTextFieldAnnouncesText(t *testing.T) {
	f := NewTextField()
	var changes []notify.Change
	f.Changes().SubscribeFunc("text", func(c notify.Change) {
		changes = append(changes, c)
	})

	assert.True(t, f.Type("hello"))
	f.SetEnabled(false)
	assert.False(t, f.Type("ignored"))

	assert.Equal(t, "hello", f.Text())
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "", changes[0].OldValue)
		assert.Equal(t, "hello", changes[0].NewValue)
	}
}

func TestToggleClick(t *testing.T) {
	tg := NewToggle("agree")
	tg.Click()
	assert.True(t, tg.Checked())
	tg.Click()
	assert.False(t, tg.Checked())
}

func TestListBoxEdits(t *testing.T) {
	l := NewListBox()
	l.SetItems([]any{"a", "d"})
	l.InsertItems(1, []any{"b", "c"})
	l.ReplaceItem(3, "D")
	l.RemoveItems(0, 1)
	l.RemoveItems(9, 1)
	assert.Equal(t, []any{"b", "c", "D"}, l.Items())
	assert.Equal(t, 4, l.Updates())

	assert.NoError(t, l.Select(1))
	assert.Equal(t, "c", l.Selected())
	assert.Error(t, l.Select(5))
}
