package giga

// EventType is implemented by each category of event the bus carries.
type EventType interface {
	Type() string
}

var EVENT_TYPES []EventType = []EventType{
	EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_TX("TX"),
	EVENT_WALLET("WALLET"),
}

// EVENT_ALL is a special category, never sent directly, meaning "*".
type EVENT_ALL string

func (e EVENT_ALL) Type() string { return "ALL" }

// EVENT_SYS covers process lifecycle notifications.
type EVENT_SYS string

func (e EVENT_SYS) Type() string { return "SYS" }

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
)

// EVENT_TX covers per-transaction projection outcomes.
type EVENT_TX string

func (e EVENT_TX) Type() string { return "TX" }

const (
	TX_PROJECTED EVENT_TX = "PROJECTED"
	TX_SKIPPED   EVENT_TX = "SKIPPED" // already projected, idempotent redelivery
	TX_MATURED   EVENT_TX = "MATURED" // a lock matured, no new tx involved
)

// EVENT_WALLET covers wallet registration/materialization outcomes.
type EVENT_WALLET string

func (e EVENT_WALLET) Type() string { return "WALLET" }

const (
	WALLET_REGISTERED   EVENT_WALLET = "REGISTERED"
	WALLET_MATERIALIZED EVENT_WALLET = "MATERIALIZED"
	WALLET_ERRORED      EVENT_WALLET = "ERRORED"
)
