package cache

// 哨兵节点固定占用 arena 的前两个槽位，永远不会出现在索引中。
const (
	mruSentinel = 0
	lruSentinel = 1
	noSlot      = -1
)

// node 是 arena 中的一个槽位，prev/next 为其它槽位的下标。
type node struct {
	key   string
	value payload
	prev  int
	next  int
}

// lruList 以切片 + 下标模拟双向链表，空闲槽位通过 free 复用。
type lruList struct {
	nodes []node
	free  []int
}

func newLRUList(capacity int) *lruList {
	if capacity < 0 {
		capacity = 0
	}
	l := &lruList{nodes: make([]node, 2, capacity+2)}
	l.nodes[mruSentinel] = node{prev: noSlot, next: lruSentinel}
	l.nodes[lruSentinel] = node{prev: mruSentinel, next: noSlot}
	return l
}

// alloc 取一个空闲槽位（或追加新槽位）写入 key/value，但不挂入链表。
func (l *lruList) alloc(key string, value payload) int {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.nodes[idx] = node{key: key, value: value, prev: noSlot, next: noSlot}
		return idx
	}
	l.nodes = append(l.nodes, node{key: key, value: value, prev: noSlot, next: noSlot})
	return len(l.nodes) - 1
}

// release 清空槽位并放回空闲列表，调用方需先 detach。
func (l *lruList) release(idx int) {
	l.nodes[idx] = node{prev: noSlot, next: noSlot}
	l.free = append(l.free, idx)
}

func (l *lruList) detach(idx int) {
	n := &l.nodes[idx]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
	n.prev, n.next = noSlot, noSlot
}

// attachFront 将槽位挂到 MRU 端。
func (l *lruList) attachFront(idx int) {
	first := l.nodes[mruSentinel].next
	l.nodes[idx].prev = mruSentinel
	l.nodes[idx].next = first
	l.nodes[first].prev = idx
	l.nodes[mruSentinel].next = idx
}

func (l *lruList) moveToFront(idx int) {
	if l.nodes[mruSentinel].next == idx {
		return
	}
	l.detach(idx)
	l.attachFront(idx)
}

// back 返回最久未使用的槽位；链表为空时返回 noSlot。
func (l *lruList) back() int {
	idx := l.nodes[lruSentinel].prev
	if idx == mruSentinel {
		return noSlot
	}
	return idx
}

// walk 从 MRU 到 LRU 依次访问槽位，fn 返回 false 时提前结束。
func (l *lruList) walk(fn func(idx int) bool) {
	for idx := l.nodes[mruSentinel].next; idx != lruSentinel; idx = l.nodes[idx].next {
		if !fn(idx) {
			return
		}
	}
}
