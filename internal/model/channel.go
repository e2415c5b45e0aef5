package model

// ChannelStatus marks whether a channel is still usable for outreach.
type ChannelStatus string

const (
	ChannelActive     ChannelStatus = "active"
	ChannelBounced    ChannelStatus = "bounced"
	ChannelSuppressed ChannelStatus = "suppressed"
)

// Phone is a reachable phone number. Number is digits-only and globally
// unique in the phones table.
type Phone struct {
	ID       int64          `json:"id" db:"id"`
	Number   string         `json:"number" db:"number"`
	Status   ChannelStatus  `json:"status" db:"status"`
	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`
}

// Email is a reachable email address, lower-cased and globally unique
// in the emails table. Bounce and suppression flags from source systems
// land in Status and Metadata.
type Email struct {
	ID       int64          `json:"id" db:"id"`
	Address  string         `json:"address" db:"address"`
	Status   ChannelStatus  `json:"status" db:"status"`
	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`
}

// Profile is an external profile URL (canonicalized), unique per URL.
type Profile struct {
	ID          int64          `json:"id" db:"id"`
	URL         string         `json:"url" db:"url"`
	ProfileName string         `json:"profile_name,omitempty" db:"profile_name"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
}
