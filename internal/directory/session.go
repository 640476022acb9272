package directory

import (
	"context"

	"go.uber.org/zap"

	"github.com/52im/xuanxuan/internal/events"
	"github.com/52im/xuanxuan/internal/models"
)

// Session owns the current-user profile and both directories for one login.
// It replaces ambient module-level singletons: consumers receive the session
// explicitly, and a user swap tears the directories down to empty instead of
// reconstructing global state.
type Session struct {
	Profile *Profile
	Members *MemberDirectory
	Chats   *ChatDirectory

	bus *events.Bus
	log *zap.Logger
}

// SessionOptions tunes the session's chat directory and logging.
type SessionOptions struct {
	Chat   ChatDirectoryOptions
	Logger *zap.Logger
}

// NewSession constructs the directories for the logged-in user and wires them
// to the bus: external data-change payloads are forwarded into the matching
// directory (skipping the directories' own publications via their source
// tags), and a user-swap broadcast reinitializes everything to empty.
func NewSession(profile *Profile, bus *events.Bus, store MessageStore, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Chat.Logger == nil {
		opts.Chat.Logger = opts.Logger
	}

	members := NewMemberDirectory(profile, bus, opts.Logger)
	chats := NewChatDirectory(profile, members, bus, store, opts.Chat)
	session := &Session{
		Profile: profile,
		Members: members,
		Chats:   chats,
		bus:     bus,
		log:     opts.Logger,
	}

	bus.OnDataChange(func(change events.DataChange) {
		if change.Source == sourceMembers || change.Source == sourceChats {
			return
		}
		session.applyDataChange(change)
	})
	bus.OnUserSwap(func(swap events.UserSwap) {
		session.swapUser(swap)
	})

	return session
}

// applyDataChange forwards an external broadcast into the directories.
func (s *Session) applyDataChange(change events.DataChange) {
	if len(change.Members) > 0 {
		batch := make([]*models.Member, 0, len(change.Members))
		for _, member := range change.Members {
			batch = append(batch, member)
		}
		s.Members.Update(batch...)
	}
	if len(change.Chats) > 0 {
		batch := make([]*models.Chat, 0, len(change.Chats))
		for _, chat := range change.Chats {
			batch = append(batch, chat)
		}
		s.Chats.Update(batch...)
	}
	if change.PublicChats != nil {
		s.Chats.UpdatePublicChats(change.PublicChats)
	}
}

// swapUser wipes both directories; identity resolution is scoped to the
// logged-in session.
func (s *Session) swapUser(swap events.UserSwap) {
	s.log.Info("user swapped, reinitializing directories",
		zap.Int64("id", swap.ID), zap.String("account", swap.Account))
	s.Profile.Swap(swap.ID, swap.Account)
	s.Members.Init(nil)
	s.Chats.Init(context.Background(), nil)
}

// Close releases the session's background resources.
func (s *Session) Close() {
	s.Chats.Close()
}
