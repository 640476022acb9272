// Package events implements the in-process pub/sub bus shared by the
// directories and the application shell. Publishing is synchronous: handlers
// run to completion on the caller's goroutine, which preserves the
// single-writer-at-a-time ordering the directories rely on.
package events

import (
	"sync"

	"github.com/52im/xuanxuan/internal/models"
)

// DataChange is the broadcast payload describing mutated entities. Publishers
// scope it to exactly the batch that changed, never the whole directory.
type DataChange struct {
	// Source names the component that published the change so that the
	// component's own subscription can skip its echo.
	Source string

	Members     map[int64]*models.Member
	Chats       map[string]*models.Chat
	PublicChats []*models.Chat
}

// UserSwap announces that the logged-in user changed. Directories reinitialize
// to empty on receipt because identity resolution is scoped to the session.
type UserSwap struct {
	ID      int64
	Account string
}

// Notice carries the aggregate unread totals emitted after the debounced
// recomputation.
type Notice struct {
	Chats int
}

// DataChangeHandler consumes DataChange broadcasts.
type DataChangeHandler func(change DataChange)

// UserSwapHandler consumes UserSwap broadcasts.
type UserSwapHandler func(swap UserSwap)

// NoticeHandler consumes Notice broadcasts.
type NoticeHandler func(notice Notice)

// Bus is a synchronous fan-out bus. The zero value is not usable; construct
// with NewBus.
type Bus struct {
	mu         sync.RWMutex
	dataChange []DataChangeHandler
	userSwap   []UserSwapHandler
	notice     []NoticeHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnDataChange registers a handler for data-change broadcasts.
func (b *Bus) OnDataChange(handler DataChangeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dataChange = append(b.dataChange, handler)
}

// OnUserSwap registers a handler for user-swap broadcasts.
func (b *Bus) OnUserSwap(handler UserSwapHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userSwap = append(b.userSwap, handler)
}

// OnNotice registers a handler for aggregate notice broadcasts.
func (b *Bus) OnNotice(handler NoticeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notice = append(b.notice, handler)
}

// EmitDataChange dispatches a data-change broadcast to every subscriber.
func (b *Bus) EmitDataChange(change DataChange) {
	for _, handler := range b.snapshotDataChange() {
		handler(change)
	}
}

// EmitUserSwap dispatches a user-swap broadcast to every subscriber.
func (b *Bus) EmitUserSwap(swap UserSwap) {
	b.mu.RLock()
	handlers := append([]UserSwapHandler(nil), b.userSwap...)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(swap)
	}
}

// EmitNotice dispatches an aggregate notice broadcast to every subscriber.
func (b *Bus) EmitNotice(notice Notice) {
	b.mu.RLock()
	handlers := append([]NoticeHandler(nil), b.notice...)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(notice)
	}
}

// snapshotDataChange copies the handler list so publishers never hold the
// lock while user code runs.
func (b *Bus) snapshotDataChange() []DataChangeHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]DataChangeHandler(nil), b.dataChange...)
}
