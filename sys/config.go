package sys

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

const projectName = "fizzbuzz"

// GetProjectName returns the bot's short name, used for PID and log
// file naming.
func GetProjectName() string {
	return projectName
}

type Config struct {
	Token    string
	GuildID  string
	DataDir  string
	OwnerIDs []snowflake.ID
	Silent   bool
	SaveLogs bool
}

var GlobalConfig *Config

// Validate ensures the configuration is valid and meets requirements.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}

	// Basic Snowflake validation for GuildID if provided
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
	}

	return nil
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	token := os.Getenv("DISCORD_TOKEN")
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	saveLogs, _ := strconv.ParseBool(os.Getenv("SAVE_LOGS"))

	ownerIDsStr := os.Getenv("OWNER_IDS")
	var ownerIDs []snowflake.ID
	if ownerIDsStr != "" {
		for _, part := range strings.Split(ownerIDsStr, ",") {
			id, err := snowflake.Parse(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid OWNER_IDS entry %q: %w", part, err)
			}
			ownerIDs = append(ownerIDs, id)
		}
	}

	cfg := &Config{
		Token:    token,
		GuildID:  os.Getenv("GUILD_ID"),
		DataDir:  dataDir,
		OwnerIDs: ownerIDs,
		Silent:   silent,
		SaveLogs: saveLogs,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

// IsOwner reports whether a user is one of the configured bot owners.
func (c *Config) IsOwner(id snowflake.ID) bool {
	for _, owner := range c.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}
