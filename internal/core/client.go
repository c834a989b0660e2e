package core

// DefaultClientBuffer is the channel capacity used when NewClient gets a non-positive size.
const DefaultClientBuffer = 64

// Client is one live connection as seen by the core layer.
// The transport writes Commands and reads Events; the hub closes Events
// once the client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
	done     chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed when the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
