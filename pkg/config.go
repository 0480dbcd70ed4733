package giga

// Config is the unmarshalled shape of the TOML config file (and of
// any env/flag overrides viper layers on top of it).
type Config struct {
	Indexer IndexerConfig
	WebAPI  WebAPIConfig
	Store   StoreConfig
	Chain   ChainConfig
	Logging LoggingConfig
}

type IndexerConfig struct {
	ServiceName string
	// GapLimit is the default maxGap for wallet registrations that omit
	// one: how many consecutive unused derived addresses the gap-limit
	// scan checks past the highest used index before stopping.
	GapLimit uint16
	// BlockRewardLock is the height offset applied to block outputs
	// before they mature from locked to unlocked.
	BlockRewardLock int64
}

type WebAPIConfig struct {
	AdminBind     string
	AdminPort     string
	PubBind       string
	PubPort       string
	PubAPIRootURL string
}

type StoreConfig struct {
	// Driver selects "postgres" or "sqlite".
	Driver string
	// DBFile is the sqlite file path (or ":memory:").
	DBFile string
	// ConnectionString is the postgres DSN.
	ConnectionString string
}

type ChainConfig struct {
	// ZMQAddress is the node's ZMQ publisher endpoint, e.g.
	// "tcp://127.0.0.1:28332".
	ZMQAddress string
	// RPCHost/RPCPort/RPCUser/RPCPass reach the node's JSON-RPC
	// interface to fetch and decode transactions named in ZMQ
	// notifications.
	RPCHost string
	RPCPort string
	RPCUser string
	RPCPass string
}

type LoggingConfig struct {
	// Filename, if set, writes every message-bus event to a rotating
	// log file. Process logs still go to stderr.
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}
