// Package surface provides headless target surfaces for bindings.
//
// Each surface is a model: its properties are observable through its change
// signal, so bindings can push into it and follow edits made on it.
package surface

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/bindkit/internal/model"
)

// TextField is a single-line text input with "text" and "enabled" properties.
type TextField struct {
	model.Base
	mu      sync.Mutex
	text    string
	enabled bool
}

// NewTextField creates an enabled, empty text field.
func NewTextField() *TextField {
	return &TextField{enabled: true}
}

// Text returns the current text.
func (f *TextField) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// SetText replaces the text and announces "text".
func (f *TextField) SetText(text string) {
	f.mu.Lock()
	old := f.text
	f.text = text
	f.mu.Unlock()
	f.Announce("text", old, text)
}

// Enabled reports whether the field accepts input.
func (f *TextField) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// SetEnabled toggles input and announces "enabled".
func (f *TextField) SetEnabled(enabled bool) {
	f.mu.Lock()
	old := f.enabled
	f.enabled = enabled
	f.mu.Unlock()
	f.Announce("enabled", old, enabled)
}

// Type simulates a user edit. It is ignored while the field is disabled.
func (f *TextField) Type(text string) bool {
	if !f.Enabled() {
		return false
	}
	f.SetText(text)
	return true
}

// String implements fmt.Stringer.
func (f *TextField) String() string {
	return fmt.Sprintf("TextField(%q)", f.Text())
}

// Toggle is a check box with a "checked" property.
type Toggle struct {
	model.Base
	Label   string
	mu      sync.Mutex
	checked bool
}

// NewToggle creates an unchecked toggle.
func NewToggle(label string) *Toggle {
	return &Toggle{Label: label}
}

// Checked reports the toggle state.
func (t *Toggle) Checked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checked
}

// SetChecked sets the toggle state and announces "checked".
func (t *Toggle) SetChecked(checked bool) {
	t.mu.Lock()
	old := t.checked
	t.checked = checked
	t.mu.Unlock()
	t.Announce("checked", old, checked)
}

// Click flips the toggle.
func (t *Toggle) Click() {
	t.SetChecked(!t.Checked())
}

// ListBox shows a list of items with an optional "selected" item.
// It implements binding.ListTarget.
type ListBox struct {
	model.Base
	mu       sync.Mutex
	items    []any
	selected any
	updates  int
}

// NewListBox creates an empty list box.
func NewListBox() *ListBox {
	return &ListBox{}
}

// SetItems replaces every item.
func (l *ListBox) SetItems(items []any) {
	l.mu.Lock()
	l.items = slices.Clone(items)
	l.updates++
	l.mu.Unlock()
}

// InsertItems inserts items at index. Out of range indexes append.
func (l *ListBox) InsertItems(index int, items []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index > len(l.items) {
		index = len(l.items)
	}
	l.items = slices.Insert(l.items, index, items...)
	l.updates++
}

// RemoveItems removes count items starting at index.
func (l *ListBox) RemoveItems(index, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return
	}
	end := min(index+count, len(l.items))
	l.items = slices.Delete(l.items, index, end)
	l.updates++
}

// ReplaceItem overwrites the item at index.
func (l *ListBox) ReplaceItem(index int, item any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return
	}
	l.items[index] = item
	l.updates++
}

// Items returns a copy of the items.
func (l *ListBox) Items() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of items.
func (l *ListBox) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Updates returns how many structural updates the list box received.
func (l *ListBox) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// Selected returns the selected item, or nil.
func (l *ListBox) Selected() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// SetSelected selects item and announces "selected".
func (l *ListBox) SetSelected(item any) {
	l.mu.Lock()
	old := l.selected
	l.selected = item
	l.mu.Unlock()
	l.Announce("selected", old, item)
}

// Select selects the item at index, as a user click would.
func (l *ListBox) Select(index int) error {
	l.mu.Lock()
	if index < 0 || index >= len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		return fmt.Errorf("select %d: list has %d items", index, n)
	}
	item := l.items[index]
	l.mu.Unlock()
	l.SetSelected(item)
	return nil
}
