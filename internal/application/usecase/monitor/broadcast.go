package monitor

import (
	"sync"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Observer 接收节流后的 View
type Observer = port.Observer

// mailbox 单槽信箱：新值覆盖未被取走的旧值
type mailbox struct {
	obs  Observer
	ch   chan domain.View
	quit chan struct{}
	done chan struct{}
}

func (m *mailbox) put(v domain.View) {
	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

func (m *mailbox) run() {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			return
		case v := <-m.ch:
			m.obs.OnView(v)
		}
	}
}

// Broadcaster 将 View 分发给所有观察者，慢观察者只会丢失中间值，不会阻塞发布方
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]*mailbox
	nextID int
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]*mailbox)}
}

// Subscribe 注册观察者，返回取消函数（等待该观察者的投递协程退出）
func (b *Broadcaster) Subscribe(obs Observer) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || obs == nil {
		return func() {}
	}

	m := &mailbox{
		obs:  obs,
		ch:   make(chan domain.View, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = m
	go m.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			_, ok := b.subs[id]
			delete(b.subs, id)
			b.mu.Unlock()
			if ok {
				close(m.quit)
				<-m.done
			}
		})
	}
}

func (b *Broadcaster) Publish(v domain.View) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, m := range b.subs {
		m.put(v)
	}
}

// Close 停止所有投递协程
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*mailbox)
	b.mu.Unlock()

	for _, m := range subs {
		close(m.quit)
		<-m.done
	}
}
