package mocks

import (
	"github.com/duelpit/duelserver/internal/dependencies/random"
)

// MockRandom returns queued results, then zero values once drained
type MockRandom struct {
	intnResults   []int
	stringResults []string
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) Intn(n int) int {
	if len(r.intnResults) == 0 {
		return 0
	}
	result := r.intnResults[0]
	r.intnResults = r.intnResults[1:]
	return result
}

func (r *MockRandom) String(length int, alphabet string) string {
	if len(r.stringResults) == 0 {
		return ""
	}
	result := r.stringResults[0]
	r.stringResults = r.stringResults[1:]
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.intnResults = append(r.intnResults, values...)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.stringResults = append(r.stringResults, values...)
}
