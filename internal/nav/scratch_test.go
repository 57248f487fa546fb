package nav

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratchResetIsLazy(t *testing.T) {
	s := newScratch(4)
	s.reset()
	s.at(2).g = 7
	assert.Equal(t, int32(7), s.at(2).g)

	s.reset()
	assert.Equal(t, int32(math.MaxInt32), s.at(2).g, "previous generation is invisible")
	assert.Equal(t, int32(-1), s.at(2).parent)
}

func TestScratchGenerationWrap(t *testing.T) {
	s := newScratch(2)
	s.gen = math.MaxUint32
	s.slots[0] = slot{gen: 1, g: 3}
	s.reset()
	assert.Equal(t, uint32(1), s.gen)
	assert.Equal(t, int32(math.MaxInt32), s.at(0).g, "wrap clears stale slots")
}

func TestOpenSetOrdersByFThenH(t *testing.T) {
	s := newScratch(4)
	s.reset()
	set := func(id int, g, h int32) {
		sl := s.at(id)
		sl.g, sl.h = g, h
		s.open.push(id)
	}
	set(0, 10, 30) // f 40
	set(1, 20, 10) // f 30, h 10
	set(2, 5, 25)  // f 30, h 25
	set(3, 0, 50)  // f 50

	sl := s.at(3)
	sl.g, sl.h = 0, 5
	s.open.fix(sl.heapIdx)

	var order []int
	for s.open.Len() > 0 {
		order = append(order, s.open.pop())
	}
	assert.Equal(t, []int{3, 1, 2, 0}, order)
}
