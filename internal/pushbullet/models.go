// Package pushbullet defines the Pushbullet account records, the error taxonomy
// returned by transports, and the Client facade callers use to talk to the API.
package pushbullet

import (
	"math"
	"time"
)

// Push types accepted by the pushes endpoint.
const (
	PushTypeNote = "note"
	PushTypeLink = "link"
	PushTypeFile = "file"
)

// Push directions reported by the server.
const (
	DirectionSelf     = "self"
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// User is the account that owns the access token.
type User struct {
	Iden            string  `json:"iden"`
	Email           string  `json:"email"`
	EmailNormalized string  `json:"email_normalized"`
	Name            string  `json:"name"`
	ImageURL        string  `json:"image_url,omitempty"`
	MaxUploadSize   float64 `json:"max_upload_size,omitempty"`
	Created         float64 `json:"created"`
	Modified        float64 `json:"modified"`
}

// CreatedAt returns the creation timestamp.
func (u *User) CreatedAt() time.Time { return epochTime(u.Created) }

// Device is a registered endpoint that can receive pushes.
type Device struct {
	Iden              string  `json:"iden"`
	Active            bool    `json:"active"`
	Nickname          string  `json:"nickname,omitempty"`
	GeneratedNickname bool    `json:"generated_nickname,omitempty"`
	Manufacturer      string  `json:"manufacturer,omitempty"`
	Model             string  `json:"model,omitempty"`
	AppVersion        int     `json:"app_version,omitempty"`
	Type              string  `json:"type,omitempty"`
	Kind              string  `json:"kind,omitempty"`
	Icon              string  `json:"icon,omitempty"`
	Pushable          bool    `json:"pushable"`
	HasSMS            bool    `json:"has_sms,omitempty"`
	PushToken         string  `json:"push_token,omitempty"`
	Fingerprint       string  `json:"fingerprint,omitempty"`
	Created           float64 `json:"created"`
	Modified          float64 `json:"modified"`
}

// CreatedAt returns the registration timestamp.
func (d *Device) CreatedAt() time.Time { return epochTime(d.Created) }

// ModifiedAt returns the last modification timestamp.
func (d *Device) ModifiedAt() time.Time { return epochTime(d.Modified) }

// Push is a single notification exchanged between a sender and a receiver.
type Push struct {
	Iden                    string  `json:"iden"`
	Active                  bool    `json:"active"`
	Type                    string  `json:"type"`
	Title                   string  `json:"title,omitempty"`
	Body                    string  `json:"body,omitempty"`
	URL                     string  `json:"url,omitempty"`
	Direction               string  `json:"direction,omitempty"`
	Dismissed               bool    `json:"dismissed"`
	GUID                    string  `json:"guid,omitempty"`
	SenderIden              string  `json:"sender_iden,omitempty"`
	SenderEmail             string  `json:"sender_email,omitempty"`
	SenderEmailNormalized   string  `json:"sender_email_normalized,omitempty"`
	SenderName              string  `json:"sender_name,omitempty"`
	ReceiverIden            string  `json:"receiver_iden,omitempty"`
	ReceiverEmail           string  `json:"receiver_email,omitempty"`
	ReceiverEmailNormalized string  `json:"receiver_email_normalized,omitempty"`
	TargetDeviceIden        string  `json:"target_device_iden,omitempty"`
	SourceDeviceIden        string  `json:"source_device_iden,omitempty"`
	ChannelIden             string  `json:"channel_iden,omitempty"`
	Created                 float64 `json:"created"`
	Modified                float64 `json:"modified"`
}

// CreatedAt returns the creation timestamp.
func (p *Push) CreatedAt() time.Time { return epochTime(p.Created) }

// ModifiedAt returns the last modification timestamp.
func (p *Push) ModifiedAt() time.Time { return epochTime(p.Modified) }

// IsNote reports whether the push is a plain note.
func (p *Push) IsNote() bool { return p.Type == PushTypeNote }

// ChatRecipient is the other party of a chat.
type ChatRecipient struct {
	Type            string `json:"type"` // "email" or "user"
	Iden            string `json:"iden,omitempty"`
	Email           string `json:"email"`
	EmailNormalized string `json:"email_normalized,omitempty"`
	Name            string `json:"name,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
}

// Chat is a conversation thread with another user.
type Chat struct {
	Iden     string        `json:"iden"`
	Active   bool          `json:"active"`
	Muted    bool          `json:"muted,omitempty"`
	With     ChatRecipient `json:"with"`
	Created  float64       `json:"created"`
	Modified float64       `json:"modified"`
}

// CreatedAt returns the creation timestamp.
func (c *Chat) CreatedAt() time.Time { return epochTime(c.Created) }

// Channel is a broadcast channel that users subscribe to by tag.
type Channel struct {
	Iden        string `json:"iden"`
	Tag         string `json:"tag"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Subscription links the account to a channel.
type Subscription struct {
	Iden     string  `json:"iden"`
	Active   bool    `json:"active"`
	Muted    bool    `json:"muted,omitempty"`
	Channel  Channel `json:"channel"`
	Created  float64 `json:"created"`
	Modified float64 `json:"modified"`
}

// NewDevice is the payload for registering a device.
type NewDevice struct {
	Nickname     string `json:"nickname"`
	Type         string `json:"type,omitempty"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	PushToken    string `json:"push_token,omitempty"`
	AppVersion   int    `json:"app_version,omitempty"`
	Icon         string `json:"icon,omitempty"`
	HasSMS       bool   `json:"has_sms,omitempty"`
}

// NotificationPost is the payload for creating a push.
// An empty DeviceIden sends the push to every device of the account.
type NotificationPost struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	URL        string `json:"url,omitempty"`
	DeviceIden string `json:"device_iden,omitempty"`
}

// NewNote builds a note payload.
func NewNote(title, body, deviceIden string) *NotificationPost {
	return &NotificationPost{
		Type:       PushTypeNote,
		Title:      title,
		Body:       body,
		DeviceIden: deviceIden,
	}
}

// ChatRequest is the payload for creating a chat.
type ChatRequest struct {
	Email string `json:"email"`
}

// SubscriptionRequest is the payload for subscribing to a channel.
type SubscriptionRequest struct {
	ChannelTag string `json:"channel_tag"`
}

// ListOptions filters a single page of pushes.
type ListOptions struct {
	// ActiveOnly excludes deleted pushes.
	ActiveOnly bool

	// ModifiedAfter is an epoch timestamp; only pushes modified later are returned.
	ModifiedAfter float64

	// Limit caps the page size. Zero leaves the server default.
	Limit int

	// Cursor continues a previous page.
	Cursor string
}

// PushPage is one page of the pushes listing.
type PushPage struct {
	Pushes []Push `json:"pushes"`
	Cursor string `json:"cursor,omitempty"`
}

// HasMore reports whether another page can be requested with Cursor.
func (p *PushPage) HasMore() bool { return p.Cursor != "" }

// epochTime converts fractional epoch seconds into a time.Time.
func epochTime(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
