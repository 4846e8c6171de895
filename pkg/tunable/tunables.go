package tunable

import (
	"fmt"
	"sync/atomic"
)

// Tunable is an integer parameter that can be adjusted while the control loops are reading it.
// Values are clamped to [Min, Max].
type Tunable struct {
	Name     string
	Value    int64
	Min, Max int64
}

func New(name string, value, min, max int) *Tunable {
	t := &Tunable{
		Name: name,
		Min:  int64(min),
		Max:  int64(max),
	}
	t.Value = t.clamp(int64(value))
	return t
}

func (t *Tunable) clamp(v int64) int64 {
	if v < t.Min {
		return t.Min
	}
	if v > t.Max {
		return t.Max
	}
	return v
}

func (t *Tunable) Add(delta int) {
	for {
		old := atomic.LoadInt64(&t.Value)
		newV := t.clamp(old + int64(delta))
		if atomic.CompareAndSwapInt64(&t.Value, old, newV) {
			fmt.Println("Tunable", t.Name, "=", newV)
			return
		}
	}
}

func (t *Tunable) Set(v int) {
	newV := t.clamp(int64(v))
	atomic.StoreInt64(&t.Value, newV)
	fmt.Println("Tunable", t.Name, "=", newV)
}

func (t *Tunable) Get() int {
	return int(atomic.LoadInt64(&t.Value))
}

func (t *Tunable) Get32() int32 {
	return int32(atomic.LoadInt64(&t.Value))
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value, min, max int) *Tunable {
	newTunable := New(name, value, min, max)
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}
