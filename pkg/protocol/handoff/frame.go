package handoff

// Frame types. A channel's first frame must be one of the two auth types;
// everything after depends on the role the auth established.
const (
	// TypeAuth authenticates the channel as the pair's watcher.
	TypeAuth = "auth"
	// TypeCollectAuth authenticates the channel as the pair's collector.
	TypeCollectAuth = "collect_auth"
	// TypeReady acknowledges a registered channel.
	TypeReady = "ready"
	// TypePaired tells the watcher its partner joined.
	TypePaired = "paired"
	// TypeBundle carries the opaque history payload.
	TypeBundle = "bundle"
	// TypeError reports why the server is closing the channel.
	TypeError = "error"
)

// Frame is one JSON message on a handoff channel. Which fields are populated
// depends on Type; absent fields are omitted on the wire.
type Frame struct {
	Type             string `json:"type"`
	PublicKey        string `json:"publicKey,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	Signature        string `json:"signature,omitempty"`
	Payload          string `json:"payload,omitempty"`
	PartnerPublicKey string `json:"partnerPublicKey,omitempty"`
	Message          string `json:"message,omitempty"`
}
