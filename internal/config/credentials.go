package config

import (
	"os"

	"github.com/zalando/go-keyring"

	"flakemart/pkg/models"
)

const keyringService = "flakemart"

// ResolvePassword returns the Snowflake password for the configured user.
// Resolution order: explicit config value, FLAKEMART_SNOWFLAKE_PASSWORD
// environment variable, then the OS keyring. Keeping the password out of the
// config file is the recommended setup.
func ResolvePassword(cfg *models.Config) (string, error) {
	if cfg.Snowflake.Password != "" {
		return cfg.Snowflake.Password, nil
	}
	if pw := os.Getenv("FLAKEMART_SNOWFLAKE_PASSWORD"); pw != "" {
		return pw, nil
	}
	return keyring.Get(keyringService, cfg.Snowflake.Username)
}

// StorePassword saves the password in the OS keyring, keyed by username.
func StorePassword(username, password string) error {
	return keyring.Set(keyringService, username, password)
}

// DeletePassword removes a stored password from the OS keyring.
func DeletePassword(username string) error {
	return keyring.Delete(keyringService, username)
}
