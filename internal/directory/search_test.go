package directory

import (
	"context"
	"testing"

	"github.com/52im/xuanxuan/internal/models"
)

// newSearchFixture seeds a session with the current user, two contacts, a
// group chat and a system chat.
func newSearchFixture(t *testing.T) *Session {
	t.Helper()

	session, _, _ := newTestSession(t)
	session.Members.Update(
		&models.Member{ID: 1, Account: "alice", Realname: "Alice"},
		&models.Member{ID: 2, Account: "bob", Realname: "Robert", Email: "robert@corp.example", Mobile: "5550100"},
		&models.Member{ID: 3, Account: "carol", Realname: "Carol"},
	)
	session.Chats.Update(
		&models.Chat{GID: "g-dev", Name: "alpha", Type: models.GroupChat, Members: []int64{1, 2, 3}},
		&models.Chat{GID: "s1", Type: models.SystemChat, Members: []int64{1, 2, 3}},
	)
	return session
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)
	if got := session.Chats.Search("", SearchAny); got != nil {
		t.Fatalf("Search(\"\") = %v, want nil", gidsOf(got))
	}
	if got := session.Chats.Search("   \t ", SearchAny); got != nil {
		t.Fatalf("whitespace query = %v, want nil", gidsOf(got))
	}
}

func TestSearchScoreTiers(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "exact name", query: "alpha", want: 100},
		{name: "name prefix", query: "al", want: 75},
		{name: "name substring", query: "ph", want: 50},
		{name: "case insensitive", query: "ALPHA", want: 100},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			session := newSearchFixture(t)
			result := session.Chats.Search(testCase.query, SearchAny)
			chat := findChat(result, "g-dev")
			if chat == nil {
				t.Fatalf("Search(%q) missed g-dev: %v", testCase.query, gidsOf(result))
			}
			if chat.Score != testCase.want {
				t.Fatalf("Search(%q) score = %d, want %d", testCase.query, chat.Score, testCase.want)
			}
		})
	}
}

func TestSearchIDSigil(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// Against a group chat the id sigil hits the gid at double weight.
	result := session.Chats.Search("#g-dev", SearchAny)
	chat := findChat(result, "g-dev")
	if chat == nil || chat.Score != 200 {
		t.Fatalf("Search(#g-dev) g-dev score = %v, want 200", scoreOfChat(chat))
	}

	// Against the system chat the sigil also hits the display name and the
	// literal "system" tag, each at double weight, plus the normal-weight name
	// pass: 2*75 + 2*75 + 75.
	result = session.Chats.Search("#sys", SearchAny)
	chat = findChat(result, "s1")
	if chat == nil || chat.Score != 375 {
		t.Fatalf("Search(#sys) s1 score = %v, want 375", scoreOfChat(chat))
	}
}

func TestSearchAccountSigil(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	result := session.Chats.Search("@bob", SearchAny)
	chat := findChat(result, "1&2")
	if chat == nil || chat.Score != 200 {
		t.Fatalf("Search(@bob) contact chat score = %v, want 200", scoreOfChat(chat))
	}

	// The account sigil never scores group chats.
	if group := findChat(result, "g-dev"); group != nil {
		t.Fatalf("Search(@bob) matched group chat with score %d", group.Score)
	}
}

func TestSearchContactInfo(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	result := session.Chats.Search("5550100", SearchAny)
	chat := findChat(result, "1&2")
	if chat == nil || chat.Score != 50 {
		t.Fatalf("mobile search score = %v, want substring tier 50", scoreOfChat(chat))
	}
}

func TestSearchMaterializesContacts(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// Carol has no chat yet; a contact-scoped search must still find her.
	result := session.Chats.Search("carol", SearchContacts)
	chat := findChat(result, "1&3")
	if chat == nil || chat.Score != 100 {
		t.Fatalf("Search(carol, contacts) = %v, want materialized 1&3 at 100", gidsOf(result))
	}
	for _, found := range result {
		if !found.IsOneToOne() {
			t.Fatalf("contact scope leaked %s (%s)", found.GID, found.Type)
		}
	}
}

func TestSearchGroupScope(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// Robert only names a one2one chat; the group scope must not see it.
	if got := session.Chats.Search("robert", SearchGroups); len(got) != 0 {
		t.Fatalf("Search(robert, groups) = %v, want empty", gidsOf(got))
	}
	result := session.Chats.Search("alpha", SearchGroups)
	if len(result) != 1 || result[0].GID != "g-dev" {
		t.Fatalf("Search(alpha, groups) = %v, want [g-dev]", gidsOf(result))
	}
}

func TestSearchAscendingOrder(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)
	session.Chats.Update(
		&models.Chat{GID: "g-exact", Name: "al", Type: models.GroupChat},
		&models.Chat{GID: "g-inner", Name: "royal", Type: models.GroupChat},
	)

	result := session.Chats.Search("al", SearchGroups)
	if len(result) != 3 {
		t.Fatalf("Search(al) = %v, want 3 group chats", gidsOf(result))
	}
	for i := 1; i < len(result); i++ {
		if result[i-1].Score > result[i].Score {
			t.Fatalf("results not ascending: %v", gidsOf(result))
		}
	}
	// substring < prefix < exact
	want := []string{"g-inner", "g-dev", "g-exact"}
	for i, gid := range want {
		if result[i].GID != gid {
			t.Fatalf("position %d = %s, want %s", i, result[i].GID, gid)
		}
	}
}

func TestSearchSimilarMatchHook(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// Without the hook a non-containing term never matches.
	if got := session.Chats.Search("alfa", SearchGroups); len(got) != 0 {
		t.Fatalf("Search(alfa) without hook = %v, want empty", gidsOf(got))
	}

	session.Chats.SimilarMatch = func(term, target string) bool {
		return term == "alfa" && target == "alpha"
	}
	result := session.Chats.Search("alfa", SearchGroups)
	chat := findChat(result, "g-dev")
	if chat == nil || chat.Score != 10 {
		t.Fatalf("Search(alfa) with hook = %v, want similar tier 10", scoreOfChat(chat))
	}
}

func TestSearchMultiTermAccumulates(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// "alpha" exact (100) plus "al" prefix (75) on the same field.
	result := session.Chats.Search("alpha al", SearchGroups)
	chat := findChat(result, "g-dev")
	if chat == nil || chat.Score != 175 {
		t.Fatalf("multi-term score = %v, want 175", scoreOfChat(chat))
	}
}

func TestSearchUnresolvableCounterpart(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)
	session.Chats.Update(&models.Chat{GID: "1&404", Type: models.OneToOneChat, Members: []int64{1, 404}})

	// Member 404 is unknown; the search degrades to empty contact fields
	// instead of failing, and the chat stays reachable by its gid sigil:
	// 2*100 on the gid plus the substring hit on the gid-derived fallback name.
	result := session.Chats.Search("#1&404", SearchAny)
	chat := findChat(result, "1&404")
	if chat == nil || chat.Score != 250 {
		t.Fatalf("gid sigil on unresolvable counterpart = %v, want 250", scoreOfChat(chat))
	}
}

func TestSearchDuringIngestion(t *testing.T) {
	t.Parallel()

	session := newSearchFixture(t)

	// Searches stamp the transient score onto shared chat records; they must
	// stay clean against concurrent searches and message ingestion. The race
	// detector verifies the locking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			<-session.Chats.UpdateChatMessages(context.Background(), []*models.ChatMessage{
				{CGID: "g-dev", User: 2, Content: "ping"},
			}, false)
		}
	}()
	for i := 0; i < 100; i++ {
		result := session.Chats.Search("alpha", SearchGroups)
		if chat := findChat(result, "g-dev"); chat == nil {
			t.Fatal("search lost g-dev mid-ingestion")
		}
	}
	<-done
}

func findChat(chats []*models.Chat, gid string) *models.Chat {
	for _, chat := range chats {
		if chat.GID == gid {
			return chat
		}
	}
	return nil
}

func scoreOfChat(chat *models.Chat) interface{} {
	if chat == nil {
		return nil
	}
	return chat.Score
}
