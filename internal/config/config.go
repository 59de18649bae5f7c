package config

// Config represents the entire lutbox configuration file.
// Flag values take precedence over file values; the file stores the
// operator's defaults for repeated runs.
type Config struct {
	Version   int              `yaml:"version"`
	Server    *ServerConfig    `yaml:"server,omitempty"`
	Stream    *StreamConfig    `yaml:"stream,omitempty"`
	Pipeline  *PipelineConfig  `yaml:"pipeline,omitempty"`
	Discovery *DiscoveryConfig `yaml:"discovery,omitempty"`
	LogLevel  string           `yaml:"log_level,omitempty"`
}

// ServerConfig holds the TCP listen settings for the protocol server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StreamConfig holds output target settings.
type StreamConfig struct {
	// Prefix is the base stream name; per-channel targets are named
	// "{prefix}-{channel}".
	Prefix string `yaml:"prefix"`
	// Backend selects the texture sink: "null", "memory" or "websocket".
	Backend string `yaml:"backend"`
	// WSListen is the listen address for the websocket backend and the
	// monitoring endpoint (host:port).
	WSListen string `yaml:"ws_listen"`
}

// PipelineConfig holds conversion and protocol limits.
type PipelineConfig struct {
	// AlphaEpsilon is the tolerance used to classify a 4-channel LUT as
	// carrying constant padding alpha. Alpha values all within this
	// distance of 1.0 cause the alpha channel to be dropped.
	AlphaEpsilon float64 `yaml:"alpha_epsilon"`
	// MaxMessageBytes is the framing sanity ceiling. A declared document
	// length above this closes the connection.
	MaxMessageBytes int `yaml:"max_message_bytes"`
}

// DiscoveryConfig holds mDNS settings.
type DiscoveryConfig struct {
	Advertise      bool   `yaml:"advertise"`
	BrowseTimeout  int    `yaml:"browse_timeout"` // seconds
	AdvertisedName string `yaml:"advertised_name,omitempty"`
}

// Defaults used when the config file is absent or fields are unset.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8089
	DefaultPrefix          = "vglb-lut"
	DefaultBackend         = "websocket"
	DefaultWSListen        = "127.0.0.1:8090"
	DefaultAlphaEpsilon    = 1e-6
	DefaultMaxMessageBytes = 512 << 20
	DefaultBrowseTimeout   = 10
)

// New creates a Config populated with default values.
func New() *Config {
	return &Config{
		Version: 1,
		Server: &ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Stream: &StreamConfig{
			Prefix:   DefaultPrefix,
			Backend:  DefaultBackend,
			WSListen: DefaultWSListen,
		},
		Pipeline: &PipelineConfig{
			AlphaEpsilon:    DefaultAlphaEpsilon,
			MaxMessageBytes: DefaultMaxMessageBytes,
		},
		Discovery: &DiscoveryConfig{
			Advertise:     true,
			BrowseTimeout: DefaultBrowseTimeout,
		},
	}
}

// normalize fills any zero-valued sections or fields with defaults.
// Called after loading so partial config files behave predictably.
func (c *Config) normalize() {
	def := New()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Server == nil {
		c.Server = def.Server
	} else {
		if c.Server.Host == "" {
			c.Server.Host = DefaultHost
		}
		if c.Server.Port == 0 {
			c.Server.Port = DefaultPort
		}
	}
	if c.Stream == nil {
		c.Stream = def.Stream
	} else {
		if c.Stream.Prefix == "" {
			c.Stream.Prefix = DefaultPrefix
		}
		if c.Stream.Backend == "" {
			c.Stream.Backend = DefaultBackend
		}
		if c.Stream.WSListen == "" {
			c.Stream.WSListen = DefaultWSListen
		}
	}
	if c.Pipeline == nil {
		c.Pipeline = def.Pipeline
	} else {
		if c.Pipeline.AlphaEpsilon == 0 {
			c.Pipeline.AlphaEpsilon = DefaultAlphaEpsilon
		}
		if c.Pipeline.MaxMessageBytes == 0 {
			c.Pipeline.MaxMessageBytes = DefaultMaxMessageBytes
		}
	}
	if c.Discovery == nil {
		c.Discovery = def.Discovery
	} else if c.Discovery.BrowseTimeout == 0 {
		c.Discovery.BrowseTimeout = DefaultBrowseTimeout
	}
}
