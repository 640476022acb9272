package events

import (
	"testing"

	"github.com/52im/xuanxuan/internal/models"
)

func TestBusDataChangeFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var first, second []string
	bus.OnDataChange(func(change DataChange) {
		first = append(first, change.Source)
	})
	bus.OnDataChange(func(change DataChange) {
		second = append(second, change.Source)
	})

	bus.EmitDataChange(DataChange{
		Source:  "test",
		Members: map[int64]*models.Member{1: {ID: 1}},
	})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fan-out counts = (%d, %d), want (1, 1)", len(first), len(second))
	}
	if first[0] != "test" {
		t.Fatalf("source = %q, want %q", first[0], "test")
	}
}

func TestBusEmitWithoutSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.EmitDataChange(DataChange{Source: "test"})
	bus.EmitUserSwap(UserSwap{ID: 1})
	bus.EmitNotice(Notice{Chats: 3})
}

func TestBusNoticeDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var got []int
	bus.OnNotice(func(notice Notice) {
		got = append(got, notice.Chats)
	})

	bus.EmitNotice(Notice{Chats: 5})
	bus.EmitNotice(Notice{Chats: 0})

	if len(got) != 2 || got[0] != 5 || got[1] != 0 {
		t.Fatalf("notice payloads = %v, want [5 0]", got)
	}
}
