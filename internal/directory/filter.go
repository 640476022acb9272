package directory

import "github.com/52im/xuanxuan/internal/models"

// The query condition of both directories is a tagged variant: match
// everything, match exact field values, match a predicate, or resolve an
// explicit identity list. One dispatch function per directory consumes it.

type conditionKind int

const (
	condAll conditionKind = iota
	condEquals
	condPredicate
	condIDList
)

// MemberCondition selects members in MemberDirectory.Query.
type MemberCondition struct {
	kind   conditionKind
	fields map[string]interface{}
	pred   func(*models.Member) bool
	ids    []string
}

// AllMembers matches every member in the directory.
func AllMembers() MemberCondition {
	return MemberCondition{kind: condAll}
}

// MembersWhere matches members whose named fields all equal the given values.
func MembersWhere(fields map[string]interface{}) MemberCondition {
	return MemberCondition{kind: condEquals, fields: fields}
}

// MembersMatch matches members accepted by the predicate.
func MembersMatch(pred func(*models.Member) bool) MemberCondition {
	return MemberCondition{kind: condPredicate, pred: pred}
}

// MembersByIdentity resolves each identity through the directory's lenient
// lookup.
func MembersByIdentity(idsOrAccounts ...string) MemberCondition {
	return MemberCondition{kind: condIDList, ids: idsOrAccounts}
}

// ChatCondition selects chats in ChatDirectory.Query.
type ChatCondition struct {
	kind   conditionKind
	fields map[string]interface{}
	pred   func(*models.Chat) bool
	gids   []string
}

// AllChats matches every chat in the directory.
func AllChats() ChatCondition {
	return ChatCondition{kind: condAll}
}

// ChatsWhere matches chats whose named fields all equal the given values.
func ChatsWhere(fields map[string]interface{}) ChatCondition {
	return ChatCondition{kind: condEquals, fields: fields}
}

// ChatsMatch matches chats accepted by the predicate.
func ChatsMatch(pred func(*models.Chat) bool) ChatCondition {
	return ChatCondition{kind: condPredicate, pred: pred}
}

// ChatsByGID resolves each gid through the directory's Get, skipping gids
// that do not resolve.
func ChatsByGID(gids ...string) ChatCondition {
	return ChatCondition{kind: condIDList, gids: gids}
}

// fieldsEqual reports whether every filter entry equals the corresponding
// field of the record, using the record's field accessor. Unknown field names
// never match.
func fieldsEqual(fields map[string]interface{}, valueOf func(string) (interface{}, bool)) bool {
	for name, want := range fields {
		got, ok := valueOf(name)
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares filter values with integer-width tolerance so literal
// ints match int64 record fields.
func looseEqual(got, want interface{}) bool {
	if g, ok := asInt64(got); ok {
		if w, ok := asInt64(want); ok {
			return g == w
		}
		return false
	}
	return got == want
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
