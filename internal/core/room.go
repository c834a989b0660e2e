package core

// Room is the multicast group of clients bound to the same room name.
type Room struct {
	Name    string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports whether c is in the room.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Clients returns the current members of the group in no particular order.
func (r *Room) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast sends an event to all clients in the room except exclude, which
// may be nil. Returns how many deliveries were dropped.
func (r *Room) Broadcast(event *Event, exclude *Client) int {
	dropped := 0
	for client := range r.clients {
		if client == exclude {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
			dropped++
		}
	}
	return dropped
}

// Len returns the number of clients in the room.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
