package pushbullet

import (
	"context"
)

// Transport is the set of Pushbullet endpoints the Client needs.
// Each method issues exactly one request and returns AuthError,
// ValidationError or ServiceError on failure.
type Transport interface {
	// GetUser fetches the account that owns the token.
	GetUser(ctx context.Context) (*User, error)

	// GetDevices lists the account's devices.
	GetDevices(ctx context.Context) ([]Device, error)

	// GetDevice fetches one device by iden.
	GetDevice(ctx context.Context, iden string) (*Device, error)

	// GetPushes lists the account's pushes in server order.
	GetPushes(ctx context.Context) ([]Push, error)

	// GetPush fetches one push by iden.
	GetPush(ctx context.Context, iden string) (*Push, error)

	// ListPushes fetches a single filtered page of pushes.
	ListPushes(ctx context.Context, opts ListOptions) (*PushPage, error)

	// GetChats lists the account's chats.
	GetChats(ctx context.Context) ([]Chat, error)

	// PushNotification creates a push.
	PushNotification(ctx context.Context, post *NotificationPost) error

	// CreateDevice registers a device.
	CreateDevice(ctx context.Context, device *NewDevice) error

	// CreateChat opens a chat with the user registered under email.
	CreateChat(ctx context.Context, email string) error

	// CreateSubscription subscribes the account to the channel with the given tag.
	CreateSubscription(ctx context.Context, channelTag string) error
}

// Client is the user-facing Pushbullet API surface.
// It holds no state besides its transport and is safe for concurrent use
// whenever the transport is.
type Client struct {
	transport Transport
}

// NewClient creates a client backed by the given transport.
func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

// GetUserData returns the account that owns the token.
func (c *Client) GetUserData(ctx context.Context) (*User, error) {
	return c.transport.GetUser(ctx)
}

// GetDevices returns the registered devices. An account without devices
// yields an empty slice.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	return c.transport.GetDevices(ctx)
}

// GetDevice returns a single device.
func (c *Client) GetDevice(ctx context.Context, iden string) (*Device, error) {
	return c.transport.GetDevice(ctx, iden)
}

// GetPushes returns the account's pushes.
func (c *Client) GetPushes(ctx context.Context) ([]Push, error) {
	return c.transport.GetPushes(ctx)
}

// GetPush returns a single push.
func (c *Client) GetPush(ctx context.Context, iden string) (*Push, error) {
	return c.transport.GetPush(ctx, iden)
}

// ListPushes returns one filtered page of pushes.
func (c *Client) ListPushes(ctx context.Context, opts ListOptions) (*PushPage, error) {
	return c.transport.ListPushes(ctx, opts)
}

// GetChats returns the account's chats.
func (c *Client) GetChats(ctx context.Context) ([]Chat, error) {
	return c.transport.GetChats(ctx)
}

// Push sends a note with the given title and content to targetDeviceID.
// An empty targetDeviceID pushes to all devices.
func (c *Client) Push(ctx context.Context, title, content, targetDeviceID string) error {
	return c.transport.PushNotification(ctx, NewNote(title, content, targetDeviceID))
}

// CreateDevice registers a new device.
func (c *Client) CreateDevice(ctx context.Context, device *NewDevice) error {
	return c.transport.CreateDevice(ctx, device)
}

// CreateChat opens a chat with another Pushbullet user.
func (c *Client) CreateChat(ctx context.Context, email string) error {
	return c.transport.CreateChat(ctx, email)
}

// CreateSubscription subscribes to a channel.
func (c *Client) CreateSubscription(ctx context.Context, channelTag string) error {
	return c.transport.CreateSubscription(ctx, channelTag)
}
