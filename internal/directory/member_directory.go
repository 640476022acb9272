// Package directory implements the in-memory directory and ranking layer of
// the chat client: the authoritative client-side set of members and chats,
// kept synchronized with data-change events and the local message store, and
// the weighted search used to populate the chat list.
package directory

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/52im/xuanxuan/internal/events"
	"github.com/52im/xuanxuan/internal/metrics"
	"github.com/52im/xuanxuan/internal/models"
)

// Source tags carried on self-published data-change events.
const (
	sourceMembers = "directory.members"
	sourceChats   = "directory.chats"
)

// MemberDirectory owns the authoritative mapping of member id to member
// record for the current session.
type MemberDirectory struct {
	mu      sync.RWMutex
	profile *Profile
	bus     *events.Bus
	log     *zap.Logger
	members map[int64]*models.Member
}

// NewMemberDirectory creates an uninitialized member directory.
func NewMemberDirectory(profile *Profile, bus *events.Bus, log *zap.Logger) *MemberDirectory {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemberDirectory{profile: profile, bus: bus, log: log}
}

// Init resets the directory to empty and applies the seed batch, if any.
// After Init the directory is non-nil even for an empty seed.
func (d *MemberDirectory) Init(list []*models.Member) {
	d.mu.Lock()
	d.members = make(map[int64]*models.Member, len(list))
	d.mu.Unlock()
	if len(list) > 0 {
		d.Update(list...)
	}
}

// Update upserts the batch by id, later entries winning, stamps IsMe against
// the current user, and publishes a data-change event containing only the
// batch that changed. Entries not present in the batch are preserved.
func (d *MemberDirectory) Update(batch ...*models.Member) {
	if len(batch) == 0 {
		return
	}
	meID := d.profile.UserID()
	changed := make(map[int64]*models.Member, len(batch))

	d.mu.Lock()
	if d.members == nil {
		d.members = make(map[int64]*models.Member, len(batch))
	}
	for _, member := range batch {
		member.IsMe = member.ID == meID
		d.members[member.ID] = member
		changed[member.ID] = member
	}
	d.mu.Unlock()

	metrics.MembersUpserted.Add(float64(len(changed)))
	d.bus.EmitDataChange(events.DataChange{Source: sourceMembers, Members: changed})
}

// Lookup returns the member with the given id, strictly.
func (d *MemberDirectory) Lookup(id int64) (*models.Member, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	member, ok := d.members[id]
	return member, ok
}

// Resolve finds a member by id or, failing that, by account. On a total miss
// it synthesizes a placeholder record instead of failing: chat rendering must
// degrade gracefully for unknown identities.
func (d *MemberDirectory) Resolve(idOrAccount string) *models.Member {
	if id, err := strconv.ParseInt(idOrAccount, 10, 64); err == nil {
		if member, ok := d.Lookup(id); ok {
			return member
		}
	}
	if member := d.findBy(func(m *models.Member) bool { return m.Account == idOrAccount }); member != nil {
		return member
	}
	return models.NewPlaceholderMember(idOrAccount)
}

// Guess is the search-oriented variant of Resolve: the fallback scan also
// matches the real name, and a total miss returns nil rather than a
// placeholder, which would produce false positives in search.
func (d *MemberDirectory) Guess(search string) *models.Member {
	if id, err := strconv.ParseInt(search, 10, 64); err == nil {
		if member, ok := d.Lookup(id); ok {
			return member
		}
	}
	return d.findBy(func(m *models.Member) bool {
		return m.Account == search || m.Realname == search
	})
}

// Query returns the members selected by the condition, optionally sorted by
// the given field list. The sort knows how to prioritize the current user via
// the special "me" field.
func (d *MemberDirectory) Query(condition MemberCondition, sortBy []string) []*models.Member {
	var result []*models.Member
	switch condition.kind {
	case condEquals:
		result = d.filter(func(m *models.Member) bool {
			return fieldsEqual(condition.fields, m.FieldValue)
		})
	case condPredicate:
		result = d.filter(condition.pred)
	case condIDList:
		result = make([]*models.Member, 0, len(condition.ids))
		for _, identity := range condition.ids {
			if member := d.Resolve(identity); member != nil {
				result = append(result, member)
			}
		}
	default:
		result = d.All()
	}
	if len(sortBy) > 0 {
		models.SortMembers(result, sortBy, d.profile.UserID())
	}
	return result
}

// Remove deletes a member by id and reports whether a removal occurred.
func (d *MemberDirectory) Remove(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[id]; !ok {
		return false
	}
	delete(d.members, id)
	return true
}

// All returns an unordered snapshot of every member.
func (d *MemberDirectory) All() []*models.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*models.Member, 0, len(d.members))
	for _, member := range d.members {
		result = append(result, member)
	}
	return result
}

// ForEach calls fn for every member in the directory.
func (d *MemberDirectory) ForEach(fn func(*models.Member)) {
	for _, member := range d.All() {
		fn(member)
	}
}

// Len returns the number of members in the directory.
func (d *MemberDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

func (d *MemberDirectory) findBy(pred func(*models.Member) bool) *models.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, member := range d.members {
		if pred(member) {
			return member
		}
	}
	return nil
}

func (d *MemberDirectory) filter(pred func(*models.Member) bool) []*models.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var result []*models.Member
	for _, member := range d.members {
		if pred(member) {
			result = append(result, member)
		}
	}
	return result
}
