package minefield

import (
	"fmt"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Bot  BotConfig  `toml:"bot"`
	DB   DBConfig   `toml:"db"`
	Game GameConfig `toml:"game"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

// GameConfig holds the operational knobs; the game rules themselves are
// constants in minefield/config.
type GameConfig struct {
	// ChannelName is the channel the minefield runs in, per server.
	ChannelName string `toml:"channel_name"`
	// JanitorRole is the moderator role allowed to run admin commands.
	JanitorRole string `toml:"janitor_role"`
}

// ChannelNameOrDefault falls back to the canonical channel name.
func (c GameConfig) ChannelNameOrDefault() string {
	if c.ChannelName == "" {
		return "minefield"
	}
	return c.ChannelName
}

// JanitorRoleOrDefault falls back to the canonical janitor role name.
func (c GameConfig) JanitorRoleOrDefault() string {
	if c.JanitorRole == "" {
		return "Minefield Janitor"
	}
	return c.JanitorRole
}
