package pushbullettest

import (
	"context"
	"net/http"
	"sync"

	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
)

// Transport is a pushbullet.Transport that returns canned data and records
// every write. Set the exported data fields before use.
type Transport struct {
	User    *pushbullet.User
	Devices []pushbullet.Device
	Pushes  []pushbullet.Push
	Chats   []pushbullet.Chat

	// Err, when set, is returned by every call.
	Err error

	mu            sync.Mutex
	calls         []string
	posts         []pushbullet.NotificationPost
	newDevices    []pushbullet.NewDevice
	chatEmails    []string
	subscriptions []string
}

var _ pushbullet.Transport = (*Transport)(nil)

// Calls returns the names of the methods invoked, in order.
func (t *Transport) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// Posts returns the notification payloads received.
func (t *Transport) Posts() []pushbullet.NotificationPost {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pushbullet.NotificationPost(nil), t.posts...)
}

// NewDevices returns the device payloads received.
func (t *Transport) NewDevices() []pushbullet.NewDevice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pushbullet.NewDevice(nil), t.newDevices...)
}

// ChatEmails returns the emails chats were requested with.
func (t *Transport) ChatEmails() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.chatEmails...)
}

// ChannelTags returns the channel tags subscribed to.
func (t *Transport) ChannelTags() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.subscriptions...)
}

func (t *Transport) record(call string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	return t.Err
}

func (t *Transport) GetUser(_ context.Context) (*pushbullet.User, error) {
	if err := t.record("GetUser"); err != nil {
		return nil, err
	}
	if t.User == nil {
		return nil, &pushbullet.ServiceError{Op: "get_user", Message: "no canned user"}
	}
	u := *t.User
	return &u, nil
}

func (t *Transport) GetDevices(_ context.Context) ([]pushbullet.Device, error) {
	if err := t.record("GetDevices"); err != nil {
		return nil, err
	}
	return append([]pushbullet.Device{}, t.Devices...), nil
}

func (t *Transport) GetDevice(_ context.Context, iden string) (*pushbullet.Device, error) {
	if err := t.record("GetDevice"); err != nil {
		return nil, err
	}
	for i := range t.Devices {
		if t.Devices[i].Iden == iden {
			d := t.Devices[i]
			return &d, nil
		}
	}
	return nil, &pushbullet.ValidationError{Op: "get_device", StatusCode: http.StatusNotFound, Type: "not_found"}
}

func (t *Transport) GetPushes(_ context.Context) ([]pushbullet.Push, error) {
	if err := t.record("GetPushes"); err != nil {
		return nil, err
	}
	return append([]pushbullet.Push{}, t.Pushes...), nil
}

func (t *Transport) GetPush(_ context.Context, iden string) (*pushbullet.Push, error) {
	if err := t.record("GetPush"); err != nil {
		return nil, err
	}
	for i := range t.Pushes {
		if t.Pushes[i].Iden == iden {
			p := t.Pushes[i]
			return &p, nil
		}
	}
	return nil, &pushbullet.ValidationError{Op: "get_push", StatusCode: http.StatusNotFound, Type: "not_found"}
}

func (t *Transport) ListPushes(_ context.Context, opts pushbullet.ListOptions) (*pushbullet.PushPage, error) {
	if err := t.record("ListPushes"); err != nil {
		return nil, err
	}
	pushes := make([]pushbullet.Push, 0, len(t.Pushes))
	for i := range t.Pushes {
		if opts.ActiveOnly && !t.Pushes[i].Active {
			continue
		}
		if t.Pushes[i].Modified <= opts.ModifiedAfter {
			continue
		}
		pushes = append(pushes, t.Pushes[i])
	}
	return &pushbullet.PushPage{Pushes: pushes}, nil
}

func (t *Transport) GetChats(_ context.Context) ([]pushbullet.Chat, error) {
	if err := t.record("GetChats"); err != nil {
		return nil, err
	}
	return append([]pushbullet.Chat{}, t.Chats...), nil
}

func (t *Transport) PushNotification(_ context.Context, post *pushbullet.NotificationPost) error {
	if err := t.record("PushNotification"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.posts = append(t.posts, *post)
	return nil
}

func (t *Transport) CreateDevice(_ context.Context, device *pushbullet.NewDevice) error {
	if err := t.record("CreateDevice"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.newDevices = append(t.newDevices, *device)
	return nil
}

func (t *Transport) CreateChat(_ context.Context, email string) error {
	if err := t.record("CreateChat"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chatEmails = append(t.chatEmails, email)
	return nil
}

func (t *Transport) CreateSubscription(_ context.Context, channelTag string) error {
	if err := t.record("CreateSubscription"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscriptions = append(t.subscriptions, channelTag)
	return nil
}
