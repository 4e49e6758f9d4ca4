package services

import (
	"sync"

	"livematch-service/logger"
)

// ChangeBroker 变更事件的进程内广播接口
type ChangeBroker interface {
	// Publish 发布一条变更事件给所有订阅者
	Publish(ev ChangeEvent)
	// Subscribe 订阅变更事件流
	Subscribe() <-chan ChangeEvent
	// Close 关闭所有订阅通道
	Close() error
}

// InMemoryChangeBroker ChangeBroker 的内存实现。
// 每个订阅者独立通道，所有订阅者都能看到每条被接受的变更
type InMemoryChangeBroker struct {
	subscribers []chan ChangeEvent
	mu          sync.RWMutex
	closed      bool
}

// NewInMemoryChangeBroker 创建内存广播器
func NewInMemoryChangeBroker() *InMemoryChangeBroker {
	return &InMemoryChangeBroker{}
}

// Publish 实现 ChangeBroker 接口
func (b *InMemoryChangeBroker) Publish(ev ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers {
		// 通道满了直接丢弃，慢订阅者不能拖住协调主路径
		select {
		case ch <- ev:
		default:
			logger.Printf("[ChangeBroker] ⚠️ Subscriber channel full. Event for %s/%s dropped.", ev.MatchID, ev.Field)
		}
	}
}

// Subscribe 实现 ChangeBroker 接口
func (b *InMemoryChangeBroker) Subscribe() <-chan ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ChangeEvent, 256)
	b.subscribers = append(b.subscribers, ch)

	logger.Printf("[ChangeBroker] Subscriber added. Total subscribers: %d", len(b.subscribers))
	return ch
}

// Close 实现 ChangeBroker 接口
func (b *InMemoryChangeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil

	logger.Println("[ChangeBroker] Closed all subscriber channels.")
	return nil
}
