package node

// Config is the node's static configuration, loadable from a TOML file
// (naoina/toml, the teacher's config library) and overridable by CLI flags
// (gopkg.in/urfave/cli.v1), per SPEC_FULL.md §3.2.
type Config struct {
	ListenHost string `toml:"listen_host"`
	ListenPort int    `toml:"listen_port"`
	DataDir    string `toml:"data_dir"`
	Peers      []string `toml:"peers"`
	InboxSize  int    `toml:"inbox_size"`
}

// DefaultConfig mirrors spec.md §6's constants: default TCP port 5050.
func DefaultConfig() Config {
	return Config{
		ListenHost: "0.0.0.0",
		ListenPort: 5050,
		DataDir:    "./data",
		InboxSize:  256,
	}
}
