package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/52im/xuanxuan/internal/events"
	"github.com/52im/xuanxuan/internal/metrics"
	"github.com/52im/xuanxuan/internal/models"
)

// DefaultMessagePageLimit caps the default "load recent window" query.
const DefaultMessagePageLimit = 100

// DefaultRecentWindow bounds how old a quiet, unstarred chat may be and still
// count as recent.
const DefaultRecentWindow = 7 * 24 * time.Hour

// DefaultNoticeDelay is the coalescing window of the debounced unread-count
// recomputation.
const DefaultNoticeDelay = 100 * time.Millisecond

// MessageStore is the durable-store boundary used by the chat directory: a
// key/filter-addressable record store. Engine internals are out of scope.
type MessageStore interface {
	// Query returns messages matching every equality filter, ordered, with an
	// optional result cap (zero = unbounded).
	Query(ctx context.Context, filter map[string]interface{}, limit int) ([]*models.ChatMessage, error)
	// BulkPut upserts messages by their client gid.
	BulkPut(ctx context.Context, messages []*models.ChatMessage) error
	// Delete removes one message row by its client gid.
	Delete(ctx context.Context, gid string) error
}

// ChatSetting carries creation-time overrides for CreateWithMembers.
type ChatSetting struct {
	Name   string
	Type   models.ChatType
	PinYin string
}

// ChatDirectoryOptions tunes a chat directory; zero values fall back to the
// package defaults.
type ChatDirectoryOptions struct {
	NoticeDelay      time.Duration
	MessagePageLimit int
	RecentWindow     time.Duration
	Logger           *zap.Logger
}

// ChatDirectory owns the authoritative mapping of chat gid to chat record for
// the current session, plus the separate public-chat list.
type ChatDirectory struct {
	mu      sync.RWMutex
	profile *Profile
	members *MemberDirectory
	bus     *events.Bus
	store   MessageStore
	log     *zap.Logger

	chats       map[string]*models.Chat
	publicChats []*models.Chat

	updateNotice *DelayAction
	pageLimit    int
	recentWindow time.Duration

	// SimilarMatch is the optional fuzzy/phonetic hook behind the reserved
	// "similar" score tier. When nil, that tier is never produced.
	SimilarMatch func(term, target string) bool
}

// NewChatDirectory creates an uninitialized chat directory on top of the
// member directory and the durable message store.
func NewChatDirectory(profile *Profile, members *MemberDirectory, bus *events.Bus, store MessageStore, opts ChatDirectoryOptions) *ChatDirectory {
	if opts.NoticeDelay <= 0 {
		opts.NoticeDelay = DefaultNoticeDelay
	}
	if opts.MessagePageLimit <= 0 {
		opts.MessagePageLimit = DefaultMessagePageLimit
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	d := &ChatDirectory{
		profile:      profile,
		members:      members,
		bus:          bus,
		store:        store,
		log:          opts.Logger,
		pageLimit:    opts.MessagePageLimit,
		recentWindow: opts.RecentWindow,
	}
	// Recomputes from current state so only the freshest totals are emitted.
	d.updateNotice = NewDelayAction(opts.NoticeDelay, d.emitNoticeTotal)
	return d
}

// Close cancels any pending debounced work.
func (d *ChatDirectory) Close() {
	d.updateNotice.Stop()
}

// Init resets the mapping to empty, seeds it with the given chats, and
// triggers the default message load for every seeded chat that has not loaded
// its window yet, so initialization converges to "every known chat has at
// least attempted a message load".
func (d *ChatDirectory) Init(ctx context.Context, list []*models.Chat) {
	d.mu.Lock()
	d.chats = make(map[string]*models.Chat, len(list))
	d.mu.Unlock()
	if len(list) == 0 {
		return
	}
	d.Update(list...)
	for _, chat := range d.All() {
		if chat.HasSetMessages {
			continue
		}
		if _, err := d.LoadChatMessages(ctx, chat, nil, d.pageLimit); err != nil {
			d.log.Warn("load chat messages on init failed",
				zap.String("gid", chat.GID), zap.Error(err))
		}
	}
}

// Update canonicalizes each chat, merges the batch into the mapping by gid
// (insert-or-replace, last-wins within the batch), and publishes a data-change
// event scoped to exactly the batch that changed.
func (d *ChatDirectory) Update(batch ...*models.Chat) {
	if len(batch) == 0 {
		return
	}
	changed := make(map[string]*models.Chat, len(batch))

	d.mu.Lock()
	if d.chats == nil {
		d.chats = make(map[string]*models.Chat, len(batch))
	}
	for _, chat := range batch {
		d.canonicalize(chat)
		d.chats[chat.GID] = chat
		changed[chat.GID] = chat
	}
	d.mu.Unlock()

	metrics.ChatsUpserted.Add(float64(len(changed)))
	d.bus.EmitDataChange(events.DataChange{Source: sourceChats, Chats: changed})
}

// canonicalize fills the derivable identity of a chat record: a one2one type
// for separator gids, a fresh gid for brand-new multi-member chats, and the
// member-set index.
func (d *ChatDirectory) canonicalize(chat *models.Chat) {
	if chat.GID == "" {
		if len(chat.Members) == 2 && chat.Type != models.GroupChat {
			chat.GID = models.OneToOneGID(chat.Members[0], chat.Members[1])
			chat.Type = models.OneToOneChat
		} else {
			chat.GID = uuid.NewString()
		}
	}
	if chat.Type == "" {
		chat.Type = models.GroupChat
	}
	chat.UpdateMembersSet(chat.Members)
}

// Lookup returns the chat with the given gid, strictly. Unlike member lookup
// there is no placeholder: chat absence is meaningful.
func (d *ChatDirectory) Lookup(gid string) (*models.Chat, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	chat, ok := d.chats[gid]
	return chat, ok
}

// Get resolves a chat identity. On a mapping miss a one2one gid is
// materialized into a new chat anchored at that gid, with its member-set
// index pre-computed — but the chat is NOT registered; lookups stay
// side-effect-light and only explicit mutation paths grow the authoritative
// state. A miss on a non-separator gid returns nil.
func (d *ChatDirectory) Get(gid string) *models.Chat {
	if chat, ok := d.Lookup(gid); ok {
		return chat
	}
	a, b, err := models.ParseOneToOneGID(gid)
	if err != nil {
		return nil
	}
	chat := models.NewChat(gid, models.OneToOneChat, []int64{a, b}, d.profile.Account())
	return chat
}

// emitNoticeTotal sums the outstanding notice counts across all chats and
// emits a single aggregate notification event. It runs on the debounce timer
// goroutine, so the counts are read under the lock; the emit happens outside
// it so handlers may call back into the directory.
func (d *ChatDirectory) emitNoticeTotal() {
	d.mu.RLock()
	total := 0
	for _, chat := range d.chats {
		total += chat.NoticeCount
	}
	d.mu.RUnlock()
	metrics.NoticeEmits.Inc()
	d.bus.EmitNotice(events.Notice{Chats: total})
}

// UpdateChatMessages ingests a batch of raw messages: each is normalized,
// grouped by owning chat in arrival order, and appended to the chat's window
// when the chat resolves (bumping its notice count and last-active time, and
// optionally muting it). The debounced global notice recomputation is
// triggered exactly once regardless of batch count.
//
// All normalized messages — including ones whose chat did not resolve — are
// bulk-persisted in the background; the in-memory update is synchronous and
// independent of persistence success. The returned channel yields the
// persistence outcome and is closed without a value when there was nothing to
// persist; failures are the awaiting caller's responsibility, nothing is
// rolled back.
func (d *ChatDirectory) UpdateChatMessages(ctx context.Context, messages []*models.ChatMessage, muted bool) <-chan error {
	var (
		forUpdate []*models.ChatMessage
		batches   = make(map[string][]*models.ChatMessage)
		order     []string
	)
	for _, message := range messages {
		message.Normalize()
		forUpdate = append(forUpdate, message)
		if _, seen := batches[message.CGID]; !seen {
			order = append(order, message.CGID)
		}
		batches[message.CGID] = append(batches[message.CGID], message)
	}

	for _, cgid := range order {
		chat := d.Get(cgid)
		if chat == nil {
			continue
		}
		d.mu.Lock()
		chat.AddMessages(batches[cgid], false)
		if muted {
			chat.Muted()
		}
		d.mu.Unlock()
		metrics.MessagesIngested.Add(float64(len(batches[cgid])))
	}

	d.updateNotice.Do()

	result := make(chan error, 1)
	if len(forUpdate) == 0 {
		close(result)
		return result
	}
	go func() {
		defer close(result)
		if err := d.store.BulkPut(ctx, forUpdate); err != nil {
			metrics.StoreWriteFail.Inc()
			result <- err
		}
	}()
	return result
}

// DeleteLocalMessage removes a client-only message from its chat's window and
// from the durable store. Messages the server has acknowledged cannot be
// deleted locally; the call fails without mutating anything.
func (d *ChatDirectory) DeleteLocalMessage(ctx context.Context, message *models.ChatMessage) error {
	if !message.IsLocal() {
		return ErrRemoteMessage
	}
	if chat := d.Get(message.CGID); chat != nil {
		d.mu.Lock()
		chat.RemoveMessage(message.GID)
		d.mu.Unlock()
		d.bus.EmitDataChange(events.DataChange{
			Source: sourceChats,
			Chats:  map[string]*models.Chat{chat.GID: chat},
		})
	}
	return d.store.Delete(ctx, message.GID)
}

// LoadChatMessages queries the durable store for the chat's messages, merged
// with any caller-supplied equality filter, capped at limit (zero =
// unbounded). The unfiltered call (extra == nil) is the "load recent window"
// case: it additionally seeds the chat's live window as the initial load and
// publishes a chat-scoped data-change event. Filtered or paginated calls never
// mutate the live window.
func (d *ChatDirectory) LoadChatMessages(ctx context.Context, chat *models.Chat, extra map[string]interface{}, limit int) ([]*models.ChatMessage, error) {
	filter := map[string]interface{}{"cgid": chat.GID}
	for field, value := range extra {
		filter[field] = value
	}

	rows, err := d.store.Query(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]*models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.Normalize())
	}

	if extra == nil {
		d.mu.Lock()
		chat.AddMessages(messages, true)
		d.mu.Unlock()
		d.bus.EmitDataChange(events.DataChange{
			Source: sourceChats,
			Chats:  map[string]*models.Chat{chat.GID: chat},
		})
	}
	return messages, nil
}

// All returns an unordered snapshot of every chat.
func (d *ChatDirectory) All() []*models.Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*models.Chat, 0, len(d.chats))
	for _, chat := range d.chats {
		result = append(result, chat)
	}
	return result
}

// Recents returns the chats worth showing in the recent list: everything when
// the directory holds fewer than two chats, otherwise chats with outstanding
// notifications, starred chats (when includeStar), or chats active within the
// recency window. Quiet, unstarred, stale chats are excluded to bound the
// list.
func (d *ChatDirectory) Recents(includeStar bool) []*models.Chat {
	all := d.All()
	if len(all) < 2 {
		return all
	}
	now := time.Now()
	result := make([]*models.Chat, 0, len(all))
	for _, chat := range all {
		switch {
		case chat.NoticeCount > 0,
			includeStar && chat.Star,
			!chat.LastActiveTime.IsZero() && now.Sub(chat.LastActiveTime) <= d.recentWindow:
			result = append(result, chat)
		}
	}
	return result
}

// ContactChat returns the one2one chat for the given member, deriving the
// deterministic gid from the sorted pair of the member's and the current
// user's ids. A chat that does not exist yet is constructed and registered.
func (d *ChatDirectory) ContactChat(member *models.Member) *models.Chat {
	chat, created := d.contactChat(member)
	if created {
		d.Update(chat)
	}
	return chat
}

func (d *ChatDirectory) contactChat(member *models.Member) (*models.Chat, bool) {
	gid := models.OneToOneGID(member.ID, d.profile.UserID())
	if chat, ok := d.Lookup(gid); ok {
		return chat, false
	}
	chat := models.NewChat(gid, models.OneToOneChat, []int64{member.ID, d.profile.UserID()}, d.profile.Account())
	return chat, true
}

// ContactsChats materializes the one2one chat of every known member other
// than the current user, registers them all in one batch, and returns the
// list. This is the "everyone becomes a potential chat" step run before a
// contact-scoped search.
func (d *ChatDirectory) ContactsChats() []*models.Chat {
	var contacts []*models.Chat
	d.members.ForEach(func(member *models.Member) {
		if member.ID == d.profile.UserID() {
			return
		}
		chat, _ := d.contactChat(member)
		contacts = append(contacts, chat)
	})
	d.Update(contacts...)
	return contacts
}

// Groups returns every group or system chat.
func (d *ChatDirectory) Groups() []*models.Chat {
	return d.Query(ChatsMatch(func(chat *models.Chat) bool {
		return chat.IsGroupOrSystem()
	}), nil)
}

// Query returns the chats selected by the condition, optionally sorted by the
// given field list. The gid-list variant skips gids that do not resolve.
func (d *ChatDirectory) Query(condition ChatCondition, sortBy []string) []*models.Chat {
	var result []*models.Chat
	switch condition.kind {
	case condEquals:
		result = d.filter(func(chat *models.Chat) bool {
			return fieldsEqual(condition.fields, chat.FieldValue)
		})
	case condPredicate:
		result = d.filter(condition.pred)
	case condIDList:
		result = make([]*models.Chat, 0, len(condition.gids))
		for _, gid := range condition.gids {
			if chat := d.Get(gid); chat != nil {
				result = append(result, chat)
			}
		}
	default:
		result = d.All()
	}
	if len(sortBy) > 0 {
		models.SortChats(result, sortBy)
	}
	return result
}

// Remove deletes a chat by gid and reports whether a removal occurred.
func (d *ChatDirectory) Remove(gid string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.chats[gid]; !ok {
		return false
	}
	delete(d.chats, gid)
	return true
}

// CreateWithMembers builds a chat for the given member ids, guaranteeing the
// current user is included. Exactly two distinct members resolve to the
// canonical one2one chat by the sorted-pair gid, reusing an existing record;
// any other member count always constructs a fresh chat, because group
// identity is not derived from membership. The chat is NOT registered into
// the directory; callers that want persistence must call Update explicitly.
func (d *ChatDirectory) CreateWithMembers(memberIDs []int64, setting ChatSetting) *models.Chat {
	ids := dedupeIDs(memberIDs)
	meID := d.profile.UserID()
	if !containsID(ids, meID) {
		ids = append(ids, meID)
	}

	if len(ids) == 2 {
		gid := models.OneToOneGID(ids[0], ids[1])
		if chat := d.Get(gid); chat != nil {
			return chat
		}
	}

	chatType := setting.Type
	if chatType == "" {
		chatType = models.GroupChat
	}
	chat := models.NewChat(uuid.NewString(), chatType, ids, d.profile.Account())
	chat.Name = setting.Name
	chat.PinYin = setting.PinYin
	return chat
}

// MemberIDs normalizes member records to their ids, for callers holding
// records rather than ids.
func MemberIDs(members ...*models.Member) []int64 {
	ids := make([]int64, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	return ids
}

// ChatFiles loads every file-typed message of the chat (unbounded) and
// extracts the file payloads. By default only files confirmed sent and
// carrying a server id are returned; includeFailed requests the unfiltered
// set.
func (d *ChatDirectory) ChatFiles(ctx context.Context, chat *models.Chat, includeFailed bool) ([]*models.FileAttachment, error) {
	messages, err := d.LoadChatMessages(ctx, chat, map[string]interface{}{"contentType": models.FileContent}, 0)
	if err != nil {
		return nil, err
	}
	files := make([]*models.FileAttachment, 0, len(messages))
	for _, message := range messages {
		attachment, err := message.FileAttachment()
		if err != nil {
			d.log.Debug("skip undecodable file payload",
				zap.String("message", message.GID), zap.Error(err))
			continue
		}
		if includeFailed || attachment.IsSent() {
			files = append(files, attachment)
		}
	}
	return files, nil
}

// PublicChats returns the server-sourced public chat list.
func (d *ChatDirectory) PublicChats() []*models.Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.publicChats
}

// UpdatePublicChats replaces the public chat list wholesale — it is never
// merged — and publishes the new list.
func (d *ChatDirectory) UpdatePublicChats(serverChats []*models.Chat) {
	list := make([]*models.Chat, 0, len(serverChats))
	for _, chat := range serverChats {
		d.canonicalize(chat)
		list = append(list, chat)
	}

	d.mu.Lock()
	d.publicChats = list
	d.mu.Unlock()

	d.bus.EmitDataChange(events.DataChange{Source: sourceChats, PublicChats: list})
}

func (d *ChatDirectory) filter(pred func(*models.Chat) bool) []*models.Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var result []*models.Chat
	for _, chat := range d.chats {
		if pred(chat) {
			result = append(result, chat)
		}
	}
	return result
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
