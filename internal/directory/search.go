package directory

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/52im/xuanxuan/internal/metrics"
	"github.com/52im/xuanxuan/internal/models"
)

// SearchScope restricts which chats a search considers.
type SearchScope string

const (
	// SearchAny considers every chat.
	SearchAny SearchScope = ""
	// SearchContacts considers only one2one chats.
	SearchContacts SearchScope = "contact"
	// SearchGroups considers only group and system chats.
	SearchGroups SearchScope = "group"
)

// Relevance tiers of the per-term scoring function. The similar tier is
// reserved for the fuzzy/phonetic matcher hook; plain containment never
// produces it.
const (
	scoreMatchAll    = 100
	scoreMatchPrefix = 75
	scoreInclude     = 50
	scoreSimilar     = 10
)

// Search runs the weighted multi-field chat search behind the chat list.
//
// The query is lowercased and split on whitespace; every term scores against
// the chat's display name, its phonetic key, and — for one2one chats — the
// other participant's contact info. A term prefixed with '#' is an id-search
// sigil scored at double weight against the gid (and, for group and system
// chats, the display name; system chats also match the literal "system"). A
// term prefixed with '@' is an account-search sigil scored at double weight
// against the other participant's account handle. Term scores accumulate
// additively; a chat is included iff its total is positive.
//
// Results are sorted ascending by score — lowest relevance first. Callers
// presenting a list are expected to reverse or re-rank; the ascending order
// is a faithful contract, not an oversight.
func (d *ChatDirectory) Search(query string, scope SearchScope) []*models.Chat {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return nil
	}
	metrics.Searches.Inc()

	// Direct-message candidates must exist even when no message history has
	// created them yet.
	if scope != SearchGroups {
		d.ContactsChats()
	}

	meID := d.profile.UserID()
	type scoredChat struct {
		chat  *models.Chat
		score int
	}
	var matches []scoredChat
	for _, chat := range d.All() {
		if scope == SearchContacts && !chat.IsOneToOne() {
			continue
		}
		if scope == SearchGroups && !chat.IsGroupOrSystem() {
			continue
		}

		if score := d.scoreChat(chat, terms, meID); score > 0 {
			matches = append(matches, scoredChat{chat: chat, score: score})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score < matches[j].score
	})

	// The transient Score field lives on the shared chat records; stamp it
	// under the lock so concurrent searches and the debounce timer stay clean.
	result := make([]*models.Chat, len(matches))
	d.mu.Lock()
	for i, match := range matches {
		match.chat.Score = match.score
		result[i] = match.chat
	}
	d.mu.Unlock()
	return result
}

// scoreChat accumulates the relevance of one chat against every search term.
func (d *ChatDirectory) scoreChat(chat *models.Chat, terms []string, meID int64) int {
	chatGID := strings.ToLower(chat.GID)
	chatName := strings.ToLower(chat.DisplayName(d.members, meID))
	pinYin := strings.ToLower(chat.PinYin)

	var otherAccount, otherContactInfo string
	if chat.IsOneToOne() {
		if otherID, ok := chat.TheOtherOne(meID); ok {
			if other, found := d.members.Lookup(otherID); found {
				otherAccount = strings.ToLower(other.Account)
				otherContactInfo = strings.ToLower(other.Email + other.Mobile)
			} else {
				// Search proceeds with empty contact fields rather than
				// failing the whole search.
				d.log.Debug("cannot resolve the other participant of chat",
					zap.String("gid", chat.GID), zap.Int64("member", otherID))
			}
		}
	}

	score := 0
	for _, term := range terms {
		if len(term) > 1 {
			switch term[0] {
			case '#': // id
				term = term[1:]
				score += 2 * d.scoreOf(term, chatGID)
				if chat.IsGroupOrSystem() {
					score += 2 * d.scoreOf(term, chatName)
					if chat.IsSystem() {
						score += 2 * d.scoreOf(term, "system")
					}
				}
			case '@': // account
				term = term[1:]
				if chat.IsOneToOne() {
					score += 2 * d.scoreOf(term, otherAccount)
				}
			}
		}
		score += d.scoreOf(term, chatName)
		score += d.scoreOf(term, pinYin)
		if otherContactInfo != "" {
			score += d.scoreOf(term, otherContactInfo)
		}
	}
	return score
}

// scoreOf rates one term against one field: exact match, prefix match,
// substring match, or — only through the pluggable matcher — similarity.
func (d *ChatDirectory) scoreOf(term, field string) int {
	if term == "" || field == "" {
		return 0
	}
	if term == field {
		return scoreMatchAll
	}
	switch idx := strings.Index(field, term); {
	case idx == 0:
		return scoreMatchPrefix
	case idx > 0:
		return scoreInclude
	}
	if d.SimilarMatch != nil && d.SimilarMatch(term, field) {
		return scoreSimilar
	}
	return 0
}
