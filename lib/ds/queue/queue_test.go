package queue

import (
	"sync"
	"testing"

	"netcore/lib/ds/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type QueueTestSuite struct {
	suite.Suite

	Queue   Queue[int]
	samples []int
}

func (s *QueueTestSuite) SetupTest() {
	s.samples = []int{1, 2, 3}
}

func (s *QueueTestSuite) TestEnqueueDequeue() {
	for _, v := range s.samples {
		s.Queue.Enqueue(v)
	}

	s.Equal(uint(len(s.samples)), s.Queue.Len())

	for _, expected := range s.samples {
		actual, err := s.Queue.Dequeue()
		s.NoError(err)
		s.Equal(expected, actual)
	}

	_, err := s.Queue.Dequeue()
	s.ErrorIs(err, ErrQueueEmpty)
}

func (s *QueueTestSuite) TestPeek() {
	s.Queue.Enqueue(s.samples[0])
	s.Queue.Enqueue(s.samples[1])

	peeked, err := s.Queue.Peek()
	s.NoError(err)
	s.Equal(s.samples[0], peeked)

	s.Equal(uint(2), s.Queue.Len())
}

func (s *QueueTestSuite) TestLen() {
	s.Equal(uint(0), s.Queue.Len())

	s.Queue.Enqueue(s.samples[0])
	s.Equal(uint(1), s.Queue.Len())

	_, _ = s.Queue.Dequeue()
	s.Equal(uint(0), s.Queue.Len())
}

func (s *QueueTestSuite) TestEmpty() {
	v, err := s.Queue.Dequeue()
	s.ErrorIs(err, ErrQueueEmpty)
	s.Equal(internal.Zero[int](), v)

	v, err = s.Queue.Peek()
	s.ErrorIs(err, ErrQueueEmpty)
	s.Equal(internal.Zero[int](), v)
}

func (s *QueueTestSuite) TestInterleaved() {
	// Mixed pushes and pops must still come out in push order.
	var popped []int
	next := 0
	for round := 0; round < 50; round++ {
		for i := 0; i < 3; i++ {
			s.Queue.Enqueue(next)
			next++
		}
		for i := 0; i < 2; i++ {
			v, err := s.Queue.Dequeue()
			s.Require().NoError(err)
			popped = append(popped, v)
		}
	}
	for s.Queue.Len() > 0 {
		v, err := s.Queue.Dequeue()
		s.Require().NoError(err)
		popped = append(popped, v)
	}

	s.Require().Len(popped, next)
	for i, v := range popped {
		s.Equal(i, v)
	}
}

type FIFOTestSuite struct {
	QueueTestSuite
}

func TestFIFOTestSuite(t *testing.T) {
	suite.Run(t, new(FIFOTestSuite))
}

func (s *FIFOTestSuite) SetupTest() {
	s.QueueTestSuite.SetupTest()
	s.Queue = NewFIFO[int](0)
}

type LockedTestSuite struct {
	QueueTestSuite
}

func TestLockedTestSuite(t *testing.T) {
	suite.Run(t, new(LockedTestSuite))
}

func (s *LockedTestSuite) SetupTest() {
	s.QueueTestSuite.SetupTest()
	s.Queue = NewLocked[int](NewFIFO[int](4))
}

func TestFIFOReleasesDequeued(t *testing.T) {
	q := NewFIFO[*int](4)
	a, b := new(int), new(int)

	q.Enqueue(a)
	q.Enqueue(b)

	got, err := q.Dequeue()
	assert.NoError(t, err)
	assert.Same(t, a, got)

	for _, slot := range q.queue[:q.head] {
		assert.Nil(t, slot)
	}
}

func TestLockedConcurrentProducers(t *testing.T) {
	q := NewLocked[int](NewFIFO[int](0))

	const producers, each = 4, 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(p*each + i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint(producers*each), q.Len())

	// Each producer's own values stay in order.
	last := make(map[int]int)
	for q.Len() > 0 {
		v, err := q.Dequeue()
		assert.NoError(t, err)
		p := v / each
		if prev, ok := last[p]; ok {
			assert.Greater(t, v, prev)
		}
		last[p] = v
	}
	assert.Len(t, last, producers)
}
