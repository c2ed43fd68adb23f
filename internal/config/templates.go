package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# tradedesk configuration

[risk]
# Account size used for risk-based position sizing (USD)
account_size = 25000.0
# Percent of the account risked per trade
risk_percent = 1.0
# Plans with a first-target risk/reward below this are flagged
min_risk_reward = 2.0
# Accepted range for percentage inputs (gain, loss, change)
min_percentage = -100.0
max_percentage = 1000.0
# Multiplier applied to raw Kelly fractions in reports (0.5 = half-Kelly)
kelly_multiplier = 0.5

[storage]
# SQLite database for watchlists and saved setups (default: <config dir>/tradedesk.db)
db_path = ""

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
# Rotation: megabytes per file, files kept, days kept
max_size = 50
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
`

// createTemplateConfig writes the commented template if no config file exists.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
