package admission

import (
	"fmt"
	"sync"
	"testing"
)

func TestHashSetAddContains(t *testing.T) {
	s := NewHashSet()

	if s.Contains("abc") {
		t.Error("empty set should not contain anything")
	}
	if !s.Add("abc") {
		t.Error("first Add should report newly added")
	}
	if s.Add("abc") {
		t.Error("second Add of same hash should report already present")
	}
	if !s.Contains("abc") {
		t.Error("set should contain added hash")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d; want 1", s.Len())
	}
}

func TestHashSetSeed(t *testing.T) {
	s := NewHashSet()
	s.Seed([]string{"a", "b", "c"})

	if s.Len() != 3 {
		t.Errorf("Len = %d; want 3", s.Len())
	}
	if s.Add("b") {
		t.Error("seeded hash should not be newly added")
	}
}

func TestHashSetConcurrentAdd(t *testing.T) {
	s := NewHashSet()
	const workers = 32

	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- s.Add("contested")
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Errorf("exactly one Add should win the race, got %d", won)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d; want 1", s.Len())
	}
}

func TestHashSetConcurrentDistinct(t *testing.T) {
	s := NewHashSet()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("hash-%d", i))
		}(i)
	}
	wg.Wait()

	if s.Len() != n {
		t.Errorf("Len = %d; want %d", s.Len(), n)
	}
}
