package correlation

// Transaction is the buffered state for one correlation id. It starts
// pending; once triggered it holds no records and every further line for
// the id passes straight through.
type Transaction struct {
	ID        string
	triggered bool
	records   []*Record
}

func newTransaction(id string) *Transaction {
	return &Transaction{
		ID:      id,
		records: make([]*Record, 0, 10),
	}
}

func (t *Transaction) Triggered() bool {
	return t.triggered
}

// Add buffers rec behind the records already held.
func (t *Transaction) Add(rec *Record) {
	t.records = append(t.records, rec)
}

// Len returns the number of buffered records.
func (t *Transaction) Len() int {
	return len(t.records)
}

// Trigger switches the transaction to passthrough and hands back the
// buffered records, oldest first. The buffer is empty afterwards.
func (t *Transaction) Trigger() []*Record {
	t.triggered = true
	drained := t.records
	t.records = nil
	return drained
}

// Age is now minus the arrival time of the newest buffered record. It is
// zero with an empty buffer or when now precedes that record.
func (t *Transaction) Age(now int64) int64 {
	if len(t.records) == 0 {
		return 0
	}
	last := t.records[len(t.records)-1].ReceivedAt
	if now > last {
		return now - last
	}
	return 0
}
