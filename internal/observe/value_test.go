package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparableSkipsDuplicates(t *testing.T) {
	v := NewComparable("")
	var got []string
	cancel := v.Subscribe(func(s string) { got = append(got, s) })
	defer cancel()

	assert.True(t, v.Set("a"))
	assert.False(t, v.Set("a"))
	assert.True(t, v.Set("b"))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, "b", v.Get())
}

func TestValueAlwaysNotifies(t *testing.T) {
	v := NewValue([]int(nil))
	calls := 0
	v.Subscribe(func([]int) { calls++ })

	v.Set([]int{1})
	v.Set([]int{1})
	assert.Equal(t, 2, calls)
}

func TestCancelStopsDelivery(t *testing.T) {
	v := NewComparable(0)
	calls := 0
	cancel := v.Subscribe(func(int) { calls++ })

	v.Set(1)
	cancel()
	cancel()
	v.Set(2)
	assert.Equal(t, 1, calls)
}

func TestWatchDeliversCurrent(t *testing.T) {
	v := NewComparable(true)
	var got []bool
	cancel := v.Watch(func(b bool) { got = append(got, b) })
	defer cancel()

	v.Set(false)
	assert.Equal(t, []bool{true, false}, got)
}
