package comm

import "sync"

// DefaultQueueCapacity is the byte capacity of each link queue.
const DefaultQueueCapacity = 3000

// Queue is a bounded FIFO of fixed-size records.
// A dequeue shifts the remaining records down by one slot.
type Queue struct {
	itemSize int
	buf      []byte
	index    int
	numItems int
	lock     sync.Mutex
}

// NewQueue creates a Queue holding capacity bytes of itemSize records.
func NewQueue(itemSize, capacity int) *Queue {
	if itemSize <= 0 {
		panic("comm: queue item size must be positive")
	}
	return &Queue{itemSize: itemSize, buf: make([]byte, capacity)}
}

// NewPacketQueue creates a Queue of encoded packets with the default capacity.
func NewPacketQueue() *Queue {
	return NewQueue(PacketSize, DefaultQueueCapacity)
}

// ItemSize returns the size of each record.
func (q *Queue) ItemSize() int {
	return q.itemSize
}

// Cap returns the maximum number of records.
func (q *Queue) Cap() int {
	return len(q.buf) / q.itemSize
}

// Put appends a record. Shorter items are zero padded. It returns false
// without touching the queue if there is no room for one more record.
func (q *Queue) Put(item []byte) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.index+q.itemSize > len(q.buf) {
		return false
	}
	slot := q.buf[q.index : q.index+q.itemSize]
	n := copy(slot, item)
	for i := n; i < len(slot); i++ {
		slot[i] = 0
	}
	q.index += q.itemSize
	q.numItems++
	return true
}

// Get removes the oldest record into item. item is zero filled first;
// 0 is returned when the queue is empty.
func (q *Queue) Get(item []byte) int {
	q.lock.Lock()
	defer q.lock.Unlock()
	clear(item)
	if q.index == 0 {
		return 0
	}
	copy(item, q.buf[:q.itemSize])
	q.shift()
	return q.itemSize
}

// Peek is Get without removal.
func (q *Queue) Peek(item []byte) int {
	q.lock.Lock()
	defer q.lock.Unlock()
	clear(item)
	if q.index == 0 {
		return 0
	}
	copy(item, q.buf[:q.itemSize])
	return q.itemSize
}

// RemoveOne drops the oldest record.
func (q *Queue) RemoveOne() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.index == 0 {
		return 0
	}
	q.shift()
	return q.itemSize
}

// Clear drops all records.
func (q *Queue) Clear() {
	q.lock.Lock()
	clear(q.buf[:q.index])
	q.index, q.numItems = 0, 0
	q.lock.Unlock()
}

func (q *Queue) shift() {
	copy(q.buf, q.buf[q.itemSize:q.index])
	q.index -= q.itemSize
	q.numItems--
	clear(q.buf[q.index : q.index+q.itemSize])
}

// IsEmpty reports an empty queue.
func (q *Queue) IsEmpty() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.index == 0
}

// IsFull reports whether another record would be rejected.
func (q *Queue) IsFull() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.index+q.itemSize > len(q.buf)
}

// NumItems returns the number of queued records.
func (q *Queue) NumItems() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.numItems
}

// PutPacket encodes and appends a packet.
func (q *Queue) PutPacket(p *Packet) bool {
	var b [PacketSize]byte
	p.Encode(b[:])
	return q.Put(b[:])
}

// GetPacket removes the oldest record and decodes it into p.
func (q *Queue) GetPacket(p *Packet) bool {
	var b [PacketSize]byte
	if q.Get(b[:]) == 0 {
		p.Reset()
		return false
	}
	p.Decode(b[:])
	return true
}
