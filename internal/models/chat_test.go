package models

import (
	"testing"
	"time"
)

func TestOneToOneGID(t *testing.T) {
	tests := []struct {
		name string
		a    int64
		b    int64
		want string
	}{
		{name: "ascending pair", a: 12, b: 34, want: "12&34"},
		{name: "descending pair", a: 34, b: 12, want: "12&34"},
		{name: "wide ids", a: 9, b: 10, want: "9&10"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if got := OneToOneGID(testCase.a, testCase.b); got != testCase.want {
				t.Fatalf("OneToOneGID(%d, %d) = %q, want %q", testCase.a, testCase.b, got, testCase.want)
			}
		})
	}
}

func TestParseOneToOneGID(t *testing.T) {
	tests := []struct {
		name    string
		gid     string
		wantA   int64
		wantB   int64
		wantErr bool
	}{
		{name: "valid", gid: "12&34", wantA: 12, wantB: 34},
		{name: "no separator", gid: "1234", wantErr: true},
		{name: "three parts", gid: "1&2&3", wantErr: true},
		{name: "non numeric", gid: "a&b", wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			a, b, err := ParseOneToOneGID(testCase.gid)
			if testCase.wantErr {
				if err == nil {
					t.Fatalf("ParseOneToOneGID(%q): expected error", testCase.gid)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOneToOneGID(%q): %v", testCase.gid, err)
			}
			if a != testCase.wantA || b != testCase.wantB {
				t.Fatalf("ParseOneToOneGID(%q) = (%d, %d), want (%d, %d)", testCase.gid, a, b, testCase.wantA, testCase.wantB)
			}
		})
	}
}

func TestChatAddMessagesBookkeeping(t *testing.T) {
	t.Parallel()

	chat := NewChat("12&34", OneToOneChat, []int64{12, 34}, "alice")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	chat.AddMessages([]*ChatMessage{
		{GID: "m1", CGID: chat.GID, Date: base},
		{GID: "m2", CGID: chat.GID, Date: base.Add(time.Minute)},
	}, false)

	if chat.NoticeCount != 2 {
		t.Fatalf("notice count = %d, want 2", chat.NoticeCount)
	}
	if !chat.LastActiveTime.Equal(base.Add(time.Minute)) {
		t.Fatalf("last active = %v, want %v", chat.LastActiveTime, base.Add(time.Minute))
	}

	// A duplicate client gid replaces in place without bumping the count.
	chat.AddMessages([]*ChatMessage{{GID: "m2", CGID: chat.GID, Date: base.Add(2 * time.Minute)}}, false)
	if chat.NoticeCount != 2 {
		t.Fatalf("notice count after replace = %d, want 2", chat.NoticeCount)
	}
	if len(chat.Messages()) != 2 {
		t.Fatalf("window size = %d, want 2", len(chat.Messages()))
	}
}

func TestChatAddMessagesInitReplacesWindow(t *testing.T) {
	t.Parallel()

	chat := NewChat("12&34", OneToOneChat, []int64{12, 34}, "alice")
	chat.AddMessages([]*ChatMessage{{GID: "old", CGID: chat.GID}}, false)

	chat.AddMessages([]*ChatMessage{{GID: "a", CGID: chat.GID}, {GID: "b", CGID: chat.GID}}, true)

	if !chat.HasSetMessages {
		t.Fatal("HasSetMessages = false after initial load")
	}
	if len(chat.Messages()) != 2 {
		t.Fatalf("window size = %d, want 2", len(chat.Messages()))
	}
	if chat.NoticeCount != 1 {
		t.Fatalf("initial load changed notice count: got %d, want 1", chat.NoticeCount)
	}
}

func TestChatMutedSuppressesNotices(t *testing.T) {
	t.Parallel()

	chat := NewChat("g1", GroupChat, []int64{1, 2, 3}, "alice")
	chat.AddMessages([]*ChatMessage{{GID: "m1", CGID: "g1"}}, false)
	chat.Muted()

	if chat.NoticeCount != 0 {
		t.Fatalf("notice count after mute = %d, want 0", chat.NoticeCount)
	}

	chat.AddMessages([]*ChatMessage{{GID: "m2", CGID: "g1"}}, false)
	if chat.NoticeCount != 0 {
		t.Fatalf("muted chat accumulated notices: %d", chat.NoticeCount)
	}
}

func TestChatRemoveMessage(t *testing.T) {
	t.Parallel()

	chat := NewChat("g1", GroupChat, []int64{1, 2}, "alice")
	chat.AddMessages([]*ChatMessage{{GID: "m1"}, {GID: "m2"}, {GID: "m3"}}, true)

	if !chat.RemoveMessage("m2") {
		t.Fatal("RemoveMessage(m2) = false")
	}
	if chat.RemoveMessage("m2") {
		t.Fatal("second RemoveMessage(m2) = true")
	}
	if got := len(chat.Messages()); got != 2 {
		t.Fatalf("window size = %d, want 2", got)
	}
	for _, message := range chat.Messages() {
		if message.GID == "m2" {
			t.Fatal("m2 still present after removal")
		}
	}
}

func TestChatTheOtherOne(t *testing.T) {
	t.Parallel()

	chat := NewChat("12&34", OneToOneChat, []int64{12, 34}, "alice")
	if other, ok := chat.TheOtherOne(12); !ok || other != 34 {
		t.Fatalf("TheOtherOne(12) = (%d, %v), want (34, true)", other, ok)
	}

	group := NewChat("g1", GroupChat, []int64{1, 2, 3}, "alice")
	if _, ok := group.TheOtherOne(1); ok {
		t.Fatal("TheOtherOne on a group chat reported ok")
	}
}

func TestSortChats(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := &Chat{GID: "a", Star: false, LastActiveTime: now.Add(-time.Hour)}
	b := &Chat{GID: "b", Star: true, LastActiveTime: now}
	c := &Chat{GID: "c", Star: true, LastActiveTime: now.Add(-2 * time.Hour)}

	chats := []*Chat{a, b, c}
	SortChats(chats, []string{"-star", "-lastActiveTime"})

	want := []string{"b", "c", "a"}
	for i, gid := range want {
		if chats[i].GID != gid {
			t.Fatalf("position %d = %s, want %s", i, chats[i].GID, gid)
		}
	}
}
