package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ChatType 定义了会话的类型。
type ChatType string

const (
	OneToOneChat ChatType = "one2one" // 一对一聊天
	GroupChat    ChatType = "group"   // 群组聊天
	SystemChat   ChatType = "system"  // 系统会话
	PublicChat   ChatType = "public"  // 公开会话
)

// GIDSeparator joins the two member ids of a one2one chat gid.
const GIDSeparator = "&"

// OneToOneGID derives the deterministic gid for a chat between two members:
// the pair of ids numerically sorted ascending, joined by GIDSeparator. The
// same two users therefore always resolve to the same chat identity without a
// lookup table.
func OneToOneGID(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + GIDSeparator + strconv.FormatInt(b, 10)
}

// ParseOneToOneGID splits a one2one gid back into its two member ids.
func ParseOneToOneGID(gid string) (int64, int64, error) {
	parts := strings.Split(gid, GIDSeparator)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parse one2one gid %q: want exactly two member ids", gid)
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse one2one gid %q: %w", gid, err)
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse one2one gid %q: %w", gid, err)
	}
	return a, b, nil
}

// Chat 代表一个会话（联系人、群组、系统或公开会话）。
// Chats are owned by the chat directory; consumers must treat them as read-only.
type Chat struct {
	GID       string   `json:"gid"`
	Name      string   `json:"name,omitempty"`
	Type      ChatType `json:"type"`
	Members   []int64  `json:"members"`
	CreatedBy string   `json:"createdBy,omitempty"`

	NoticeCount    int       `json:"noticeCount,omitempty"`
	Star           bool      `json:"star,omitempty"`
	LastActiveTime time.Time `json:"lastActiveTime,omitempty"`
	Mute           bool      `json:"mute,omitempty"`

	// PinYin is the phonetic key of the display name, used by search.
	// It is supplied by whoever creates the chat; the core never derives it.
	PinYin string `json:"pinyin,omitempty"`

	// HasSetMessages reports whether the message window has been loaded from
	// the durable store at least once.
	HasSetMessages bool `json:"-"`

	// Score is a transient search-only field, meaningful only in the result
	// slice of a search call.
	Score int `json:"-"`

	messages   []*ChatMessage
	membersSet map[int64]struct{}
}

// NewChat returns a chat with its member-set index pre-computed.
func NewChat(gid string, chatType ChatType, members []int64, createdBy string) *Chat {
	chat := &Chat{
		GID:       gid,
		Type:      chatType,
		CreatedBy: createdBy,
	}
	chat.UpdateMembersSet(members)
	return chat
}

// IsOneToOne reports whether the chat has exactly two participants with a
// pair-derived identity.
func (c *Chat) IsOneToOne() bool {
	return c.Type == OneToOneChat
}

// IsGroupOrSystem reports whether the chat is a group or system chat.
func (c *Chat) IsGroupOrSystem() bool {
	return c.Type == GroupChat || c.Type == SystemChat
}

// IsSystem reports whether the chat is a system chat.
func (c *Chat) IsSystem() bool {
	return c.Type == SystemChat
}

// UpdateMembersSet replaces the member list and rebuilds the member-set index.
func (c *Chat) UpdateMembersSet(members []int64) {
	c.Members = members
	c.membersSet = make(map[int64]struct{}, len(members))
	for _, id := range members {
		c.membersSet[id] = struct{}{}
	}
}

// HasMember reports whether the given member participates in this chat.
func (c *Chat) HasMember(id int64) bool {
	if c.membersSet == nil {
		c.UpdateMembersSet(c.Members)
	}
	_, ok := c.membersSet[id]
	return ok
}

// TheOtherOne returns the id of the participant other than meID. The second
// return value is false for chats that are not one2one.
func (c *Chat) TheOtherOne(meID int64) (int64, bool) {
	if !c.IsOneToOne() {
		return 0, false
	}
	for _, id := range c.Members {
		if id != meID {
			return id, true
		}
	}
	return 0, false
}

// Messages returns the in-memory message window.
func (c *Chat) Messages() []*ChatMessage {
	return c.messages
}

// AddMessages attaches messages to the chat's in-memory window and performs
// the chat's own bookkeeping: duplicate client ids replace in place, the
// notice count grows by the number of genuinely new messages (suppressed while
// the chat is muted or during the initial load), and the last-active time
// advances to the newest message date.
//
// When isInit is true the incoming page replaces the window wholesale and the
// chat is marked as having loaded its messages.
func (c *Chat) AddMessages(messages []*ChatMessage, isInit bool) {
	if isInit {
		c.messages = append([]*ChatMessage(nil), messages...)
		c.HasSetMessages = true
		c.bumpLastActive(messages)
		return
	}
	fresh := 0
	for _, message := range messages {
		if i := c.indexOfMessage(message.GID); i >= 0 {
			c.messages[i] = message
			continue
		}
		c.messages = append(c.messages, message)
		fresh++
	}
	if !c.Mute {
		c.NoticeCount += fresh
	}
	c.bumpLastActive(messages)
}

// RemoveMessage removes one message from the window by its client id and
// reports whether anything was removed.
func (c *Chat) RemoveMessage(gid string) bool {
	i := c.indexOfMessage(gid)
	if i < 0 {
		return false
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	return true
}

// Muted marks the chat as notification-suppressed and clears any outstanding
// notice count.
func (c *Chat) Muted() {
	c.Mute = true
	c.NoticeCount = 0
}

func (c *Chat) indexOfMessage(gid string) int {
	for i, message := range c.messages {
		if message.GID == gid {
			return i
		}
	}
	return -1
}

func (c *Chat) bumpLastActive(messages []*ChatMessage) {
	for _, message := range messages {
		if message.Date.After(c.LastActiveTime) {
			c.LastActiveTime = message.Date
		}
	}
}

// MemberResolver resolves member ids to member records for display purposes.
type MemberResolver interface {
	Lookup(id int64) (*Member, bool)
}

// DisplayName returns the human-visible name of the chat. One2one chats show
// the other participant's name, system chats default to "System", and other
// chats fall back to a gid-derived label when unnamed.
func (c *Chat) DisplayName(resolver MemberResolver, meID int64) string {
	if c.Name != "" {
		return c.Name
	}
	switch {
	case c.IsOneToOne():
		if other, ok := c.TheOtherOne(meID); ok && resolver != nil {
			if member, found := resolver.Lookup(other); found {
				return member.DisplayName()
			}
		}
		return "Chat-" + c.GID
	case c.IsSystem():
		return "System"
	default:
		return "Group-" + c.GID
	}
}

// FieldValue returns the value of a named chat field for equality filters.
func (c *Chat) FieldValue(name string) (interface{}, bool) {
	switch name {
	case "gid":
		return c.GID, true
	case "name":
		return c.Name, true
	case "type":
		return c.Type, true
	case "createdBy":
		return c.CreatedBy, true
	case "star":
		return c.Star, true
	case "mute":
		return c.Mute, true
	default:
		return nil, false
	}
}

// SortChats orders chats in place by the given field list. A leading '-'
// reverses that field.
func SortChats(chats []*Chat, fields []string) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			cmp := compareChatField(a, b, name)
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

func compareChatField(a, b *Chat, name string) int {
	switch name {
	case "gid":
		return strings.Compare(a.GID, b.GID)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "star":
		return boolCompare(a.Star, b.Star)
	case "noticeCount":
		return int64Compare(int64(a.NoticeCount), int64(b.NoticeCount))
	case "lastActiveTime":
		switch {
		case a.LastActiveTime.Before(b.LastActiveTime):
			return -1
		case a.LastActiveTime.After(b.LastActiveTime):
			return 1
		default:
			return 0
		}
	case "score":
		return int64Compare(int64(a.Score), int64(b.Score))
	default:
		return 0
	}
}
