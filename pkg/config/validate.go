package config

import "fmt"

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
	case StorageFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when STORAGE_DRIVER=%s", StorageFirestore)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.PresenceDriver {
	case PresenceMemory, PresenceRedis:
	default:
		return fmt.Errorf("unknown PRESENCE_DRIVER %q", c.PresenceDriver)
	}

	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive")
	}
	if c.MessageRatePerSecond <= 0 || c.MessageRateBurst <= 0 {
		return fmt.Errorf("message rate limits must be positive")
	}
	return nil
}
