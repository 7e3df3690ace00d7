package correlation

import "time"

// Store holds at most one live Transaction per correlation id.
type Store struct {
	transactions map[string]*Transaction
	timeoutMs    int64
}

func NewStore(timeout time.Duration) *Store {
	return &Store{
		transactions: make(map[string]*Transaction),
		timeoutMs:    timeout.Milliseconds(),
	}
}

// GetOrCreate returns the Transaction for id, creating an empty pending
// one if none exists. created reports whether it was just made.
func (s *Store) GetOrCreate(id string) (trx *Transaction, created bool) {
	if trx, ok := s.transactions[id]; ok {
		return trx, false
	}
	trx = newTransaction(id)
	s.transactions[id] = trx
	return trx, true
}

// Remove deletes the Transaction for id. It reports whether one existed.
func (s *Store) Remove(id string) bool {
	if _, ok := s.transactions[id]; !ok {
		return false
	}
	delete(s.transactions, id)
	return true
}

func (s *Store) Len() int {
	return len(s.transactions)
}

// Eviction describes a Transaction dropped by Sweep.
type Eviction struct {
	ID        string
	Discarded int
}

// Sweep drops, without emitting anything, every Transaction whose age is
// strictly greater than the timeout.
func (s *Store) Sweep(now int64) []Eviction {
	var evicted []Eviction
	for id, trx := range s.transactions {
		if trx.Age(now) > s.timeoutMs {
			evicted = append(evicted, Eviction{ID: id, Discarded: trx.Len()})
			delete(s.transactions, id)
		}
	}
	return evicted
}
