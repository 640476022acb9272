package models

import (
	"sort"
	"strconv"
	"strings"
)

// Member 代表通讯录中的一个成员。
// Members are owned by the member directory; consumers must treat them as read-only.
type Member struct {
	ID       int64  `json:"id"`
	Account  string `json:"account"`
	Realname string `json:"realname"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`

	// IsMe is derived: true iff ID equals the current user's id.
	// It is stamped by the member directory on every upsert.
	IsMe bool `json:"isMe,omitempty"`
}

// NewPlaceholderMember builds a stand-in record for an identity the directory
// does not know. Chat rendering must degrade gracefully, so member lookups
// never fail; they fall back to this placeholder instead.
func NewPlaceholderMember(idOrAccount string) *Member {
	id, _ := strconv.ParseInt(idOrAccount, 10, 64)
	return &Member{
		ID:       id,
		Account:  idOrAccount,
		Realname: "User-" + idOrAccount,
	}
}

// DisplayName 返回成员的显示名称。
func (m *Member) DisplayName() string {
	if m.Realname != "" {
		return m.Realname
	}
	return m.Account
}

// FieldValue returns the value of a named member field for equality filters.
// The second return value reports whether the field name is known.
func (m *Member) FieldValue(name string) (interface{}, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "account":
		return m.Account, true
	case "realname":
		return m.Realname, true
	case "email":
		return m.Email, true
	case "mobile":
		return m.Mobile, true
	case "isMe":
		return m.IsMe, true
	default:
		return nil, false
	}
}

// SortMembers orders members in place by the given field list. A leading '-'
// on a field name reverses that field. The special field "me" sorts the
// current user (identified by meID) before everyone else.
func SortMembers(members []*Member, fields []string, meID int64) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			cmp := compareMemberField(a, b, name, meID)
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareMemberField(a, b *Member, name string, meID int64) int {
	switch name {
	case "me":
		return boolCompare(b.ID == meID, a.ID == meID)
	case "id":
		return int64Compare(a.ID, b.ID)
	case "account":
		return strings.Compare(a.Account, b.Account)
	case "realname":
		return strings.Compare(a.Realname, b.Realname)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "mobile":
		return strings.Compare(a.Mobile, b.Mobile)
	default:
		return 0
	}
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
