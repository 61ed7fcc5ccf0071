package constant

import "time"

const (
	DefaultModel = "llama3.2"

	DefaultProbeInterval   = 15 * time.Second
	DefaultProbeTimeout    = 2 * time.Second
	DefaultGenerateTimeout = 30 * time.Second
	// DefaultGenerateCeiling bounds one attempt even while bytes keep arriving.
	DefaultGenerateCeiling = 2 * time.Minute

	// BridgeUpstreamTimeout bounds connecting to an upstream chat endpoint from
	// the bridge, not the whole stream.
	BridgeUpstreamTimeout = 10 * time.Second
)

const (
	BusTopic     = "draft.events"
	RedisChannel = "auto-replier:bus"
)

const (
	ConnectErrorPrefix = "Could not connect to local model: "
	BridgeErrorPrefix  = "Error contacting local model: "
)

// BridgeDefaultStyle is used by the bridge when a request names no style.
const BridgeDefaultStyle = "concise, polite, positive, neutral, <=120 words"

const BridgeSystemInstruction = "You are an email assistant. Reply in the same language as the incoming message. " +
	"Produce only the reply body (no analysis, no meta commentary, no quoted original). " +
	"Be concise and follow the requested style. Maximum 120 words. " +
	"Salutation rules: if the original message contains a sender display name (for example 'Internshala <...>'), " +
	"use that exact display name when addressing the sender (e.g., 'Dear Internshala' or 'Hi Internshala'). " +
	"Do not invent or change the sender name. If the sender is clearly a company address and no display name is present, " +
	"use a neutral short salutation (e.g., 'Hello')."
