package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/presence"
)

// HubOptions tunes the hub. Zero values fall back to defaults.
type HubOptions struct {
	// StoreTimeout bounds every message log call. Zero disables the bound.
	StoreTimeout time.Duration
	// QueueSize caps the number of pending storage jobs per session.
	QueueSize int
}

const defaultQueueSize = 32

type inbound struct {
	client *Client
	cmd    *Command
}

type pendingRename struct {
	deferred []inbound
}

// Hub coordinates sessions, room presence and fanout.
//
// All state below the channels is owned by the goroutine running Run. Storage
// calls run on per-session workers and report back through completions, so a
// slow message log only delays the session that issued the call.
type Hub struct {
	messages MessageLog
	members  *presence.Registry
	log      *zerolog.Logger
	opts     HubOptions

	register    chan *Client
	unregister  chan *Client
	inbox       chan inbound
	completions chan func()
	done        chan struct{}
	workers     sync.WaitGroup

	runCtx   context.Context
	sessions map[*Client]*Session
	rooms    map[string]*Room
	renames  map[string]*pendingRename
}

// NewHub creates a hub backed by the given message log and presence registry.
// A nil registry gets a fresh one; a nil logger disables logging.
func NewHub(messages MessageLog, members *presence.Registry, logger *zerolog.Logger, opts HubOptions) *Hub {
	if members == nil {
		members = presence.NewRegistry()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Hub{
		messages:    messages,
		members:     members,
		log:         logger,
		opts:        opts,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbox:       make(chan inbound, 256),
		completions: make(chan func(), 256),
		done:        make(chan struct{}),
		sessions:    make(map[*Client]*Session),
		rooms:       make(map[string]*Room),
		renames:     make(map[string]*pendingRename),
	}
}

// Members exposes the presence registry for read-only use.
func (h *Hub) Members() *presence.Registry {
	return h.members
}

// RegisterClient attaches a new connection. It blocks until the hub accepts it
// or has stopped, and reports false in the latter case.
func (h *Hub) RegisterClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient detaches a connection; this is the Disconnect transition.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Done is closed once Run has stopped accepting work.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes events until ctx is canceled. It returns after every storage
// worker has exited.
func (h *Hub) Run(ctx context.Context) {
	h.runCtx = ctx
	defer h.workers.Wait()
	defer close(h.done)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case in := <-h.inbox:
			h.handleCommand(in.client, in.cmd)
		case complete := <-h.completions:
			complete()
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	if c == nil {
		return
	}
	if _, exists := h.sessions[c]; exists {
		return
	}

	s := newSession(c, h.opts.QueueSize)
	h.sessions[c] = s
	h.workers.Add(1)
	go h.forward(c)
	go h.work(s)

	h.log.Info().Str("client_id", c.ID).Int("clients", len(h.sessions)).Msg("client connected")
}

func (h *Hub) handleUnregister(c *Client) {
	s, ok := h.sessions[c]
	if !ok {
		return
	}
	if s.Bound() {
		h.detach(s)
	}
	h.drop(s)

	h.log.Info().Str("client_id", c.ID).Int("clients", len(h.sessions)).Msg("client disconnected")
}

// drop forgets the session. Already scheduled storage jobs still run.
func (h *Hub) drop(s *Session) {
	delete(h.sessions, s.Client)
	close(s.jobs)
	close(s.Client.done)
	close(s.Client.Events)
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		h.drop(s)
	}
}

// forward pumps a client's commands into the hub inbox.
func (h *Hub) forward(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

// work executes a session's storage jobs one at a time, in scheduling order.
func (h *Hub) work(s *Session) {
	defer h.workers.Done()
	for job := range s.jobs {
		ctx, cancel := h.storeContext()
		complete := job(ctx)
		cancel()
		if complete == nil {
			continue
		}
		select {
		case h.completions <- complete:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	if h.opts.StoreTimeout > 0 {
		return context.WithTimeout(h.runCtx, h.opts.StoreTimeout)
	}
	return context.WithCancel(h.runCtx)
}

// schedule queues a storage job without ever blocking the hub loop.
func (h *Hub) schedule(s *Session, job storageJob) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		h.log.Warn().Str("client_id", s.Client.ID).Msg("storage queue full")
		return false
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	s, ok := h.sessions[c]
	if !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(s, cmd)
	case CommandSendRoomMessage:
		h.send(s, cmd)
	case CommandChangeUsername:
		h.rename(s, cmd)
	case CommandLeaveRoom:
		h.leave(s, cmd)
	default:
		h.reply(c, errorEvent(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) join(s *Session, cmd *Command) {
	room, username := cmd.Room, cmd.User
	if room == "" || username == "" {
		h.reply(s.Client, errorEvent(ErrCodeBadRequest, "room and username are required"))
		return
	}

	fresh := !s.Bound()
	if !fresh && (s.Room != room || s.Username != username) {
		h.reply(s.Client, errorEvent(ErrCodeAlreadyJoined, "already joined "+s.Room+" as "+s.Username))
		return
	}
	if h.deferIfRenaming(room, s.Client, cmd) {
		return
	}

	group := h.rooms[room]
	if group == nil {
		group = NewRoom(room)
		h.rooms[room] = group
	}
	if fresh {
		s.Room, s.Username = room, username
		group.AddClient(s.Client)
		h.members.AddMember(room, username)
		h.log.Info().Str("client_id", s.Client.ID).Str("room", room).Str("username", username).Msg("user joined")
	}

	h.broadcast(group, h.memberList(room), nil)
	if fresh {
		h.broadcast(group, &Event{Kind: EventUserJoined, Room: room, User: username}, s.Client)
	}
	h.loadHistory(s, room)
}

func (h *Hub) loadHistory(s *Session, room string) {
	client := s.Client
	ok := h.schedule(s, func(ctx context.Context) func() {
		stored, err := h.messages.ListMessagesByRoom(ctx, room)
		return func() {
			if err != nil {
				h.log.Error().Err(err).Str("room", room).Msg("load history")
				h.replyIfConnected(client, errorEvent(ErrCodeStorage, "failed to load messages"))
				return
			}
			history := make([]Message, 0, len(stored))
			for _, m := range stored {
				history = append(history, messageFromStore(m))
			}
			h.replyIfConnected(client, &Event{Kind: EventHistory, Room: room, Messages: history})
		}
	})
	if !ok {
		h.reply(client, errorEvent(ErrCodeBusy, "too many pending requests"))
	}
}

func (h *Hub) send(s *Session, cmd *Command) {
	if !s.Bound() {
		h.reply(s.Client, errorEvent(ErrCodeNotInRoom, "join a room first"))
		return
	}
	if h.deferIfRenaming(s.Room, s.Client, cmd) {
		return
	}
	if cmd.Room != "" && cmd.Room != s.Room {
		h.reply(s.Client, errorEvent(ErrCodeNotInRoom, "not a member of "+cmd.Room))
		return
	}
	if cmd.User != "" && cmd.User != s.Username {
		h.reply(s.Client, errorEvent(ErrCodeForbidden, "username does not match session"))
		return
	}
	if cmd.Text == "" {
		h.reply(s.Client, errorEvent(ErrCodeBadRequest, "message is required"))
		return
	}

	room, username, body := s.Room, s.Username, cmd.Text
	client := s.Client
	ok := h.schedule(s, func(ctx context.Context) func() {
		stored, err := h.messages.InsertMessage(ctx, room, username, body)
		return func() {
			if err != nil {
				h.log.Error().Err(err).Str("room", room).Str("username", username).Msg("store message")
				h.replyIfConnected(client, errorEvent(ErrCodeStorage, "message was not stored"))
				return
			}
			if group := h.rooms[room]; group != nil {
				h.broadcast(group, &Event{Kind: EventRoomMessage, Room: room, Message: messageFromStore(stored)}, nil)
			}
		}
	})
	if !ok {
		h.reply(client, errorEvent(ErrCodeBusy, "too many pending requests"))
	}
}

func (h *Hub) rename(s *Session, cmd *Command) {
	if !s.Bound() {
		h.reply(s.Client, errorEvent(ErrCodeNotInRoom, "join a room first"))
		return
	}
	if h.deferIfRenaming(s.Room, s.Client, cmd) {
		return
	}
	if cmd.User != "" && cmd.User != s.Username {
		h.reply(s.Client, errorEvent(ErrCodeForbidden, "username does not match session"))
		return
	}
	newName := cmd.NewUser
	if newName == "" {
		h.reply(s.Client, errorEvent(ErrCodeBadRequest, "new username is required"))
		return
	}
	if newName == s.Username {
		return
	}
	if h.members.Contains(s.Room, newName) {
		h.reply(s.Client, errorEvent(ErrCodeUsernameTaken, newName+" is already in "+s.Room))
		return
	}

	room, oldName := s.Room, s.Username
	client := s.Client
	h.renames[room] = &pendingRename{}
	ok := h.schedule(s, func(ctx context.Context) func() {
		updated, err := h.messages.RenameAuthor(ctx, room, oldName, newName)
		return func() {
			defer h.finishRename(room)
			if err != nil {
				h.log.Error().Err(err).Str("room", room).Str("username", oldName).Msg("rename author")
				h.replyIfConnected(client, errorEvent(ErrCodeStorage, "rename was not applied"))
				return
			}
			h.applyRename(client, room, oldName, newName, updated)
		}
	})
	if !ok {
		delete(h.renames, room)
		h.reply(client, errorEvent(ErrCodeBusy, "too many pending requests"))
	}
}

func (h *Hub) applyRename(client *Client, room, oldName, newName string, updated int64) {
	s, ok := h.sessions[client]
	if !ok || s.Room != room || s.Username != oldName {
		// The renamer disconnected while storage was busy; its presence is already gone.
		h.log.Info().Str("room", room).Str("old_username", oldName).Str("new_username", newName).
			Int64("updated", updated).Msg("rename stored for departed user")
		return
	}

	h.members.RenameMember(room, oldName, newName)
	s.Username = newName
	// Another connection may still be bound under the old name.
	if h.usernameInUse(room, oldName) {
		h.members.AddMember(room, oldName)
	}

	h.log.Info().Str("room", room).Str("old_username", oldName).Str("new_username", newName).
		Int64("updated", updated).Msg("username changed")

	group := h.rooms[room]
	if group == nil {
		return
	}
	h.broadcast(group, &Event{
		Kind:    EventUsernameChanged,
		Room:    room,
		User:    oldName,
		NewUser: newName,
		Updated: updated,
	}, nil)
	h.broadcast(group, h.memberList(room), nil)
}

// deferIfRenaming parks commands that touch room while a rename there is
// writing to storage. They are replayed in order once it completes.
func (h *Hub) deferIfRenaming(room string, c *Client, cmd *Command) bool {
	pending, ok := h.renames[room]
	if !ok {
		return false
	}
	pending.deferred = append(pending.deferred, inbound{client: c, cmd: cmd})
	return true
}

func (h *Hub) finishRename(room string) {
	pending := h.renames[room]
	delete(h.renames, room)
	if pending == nil {
		return
	}
	for _, in := range pending.deferred {
		h.handleCommand(in.client, in.cmd)
	}
}

func (h *Hub) leave(s *Session, cmd *Command) {
	if !s.Bound() {
		h.reply(s.Client, errorEvent(ErrCodeNotInRoom, "not in a room"))
		return
	}
	if h.deferIfRenaming(s.Room, s.Client, cmd) {
		return
	}
	h.detach(s)
}

// detach unbinds a session and tells the rest of the room.
func (h *Hub) detach(s *Session) {
	room, username := s.unbind()
	if !h.usernameInUse(room, username) {
		h.members.RemoveMember(room, username)
	}

	h.log.Info().Str("client_id", s.Client.ID).Str("room", room).Str("username", username).Msg("user left")

	group := h.rooms[room]
	if group == nil {
		return
	}
	group.RemoveClient(s.Client)
	if group.Empty() {
		delete(h.rooms, room)
		return
	}
	h.broadcast(group, h.memberList(room), nil)
	h.broadcast(group, &Event{Kind: EventUserLeft, Room: room, User: username}, nil)
}

// usernameInUse reports whether any bound session in room uses username.
func (h *Hub) usernameInUse(room, username string) bool {
	group := h.rooms[room]
	if group == nil {
		return false
	}
	for _, c := range group.Clients() {
		if s, ok := h.sessions[c]; ok && s.Room == room && s.Username == username {
			return true
		}
	}
	return false
}

func (h *Hub) memberList(room string) *Event {
	return &Event{Kind: EventMemberList, Room: room, Members: h.members.ListMembers(room)}
}

func (h *Hub) broadcast(group *Room, event *Event, exclude *Client) {
	if dropped := group.Broadcast(event, exclude); dropped > 0 {
		h.log.Debug().Str("room", group.Name).Int("dropped", dropped).Msg("slow consumers missed event")
	}
}

func (h *Hub) reply(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		h.log.Debug().Str("client_id", c.ID).Msg("slow consumer missed reply")
	}
}

func (h *Hub) replyIfConnected(c *Client, event *Event) {
	if _, ok := h.sessions[c]; ok {
		h.reply(c, event)
	}
}
