package config

import (
	"fmt"
	"log"
)

func MustValidate(c Config) {
	if err := c.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
}

// Validate reports the first configuration problem that would prevent the server from starting.
func (c Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("missing required env JWT_SECRET")
	}
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing required env DATABASE_URL")
		}
	case StorageDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("missing required env MONGO_URI")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.Checkout.StripeSecretKey == "" {
		return fmt.Errorf("missing required env STRIPE_SECRET_KEY")
	}
	switch c.Checkout.Attribution {
	case AttributionConfirmation, AttributionSession:
	default:
		return fmt.Errorf("unsupported PROFIT_ATTRIBUTION %q", c.Checkout.Attribution)
	}
	if c.Checkout.Attribution == AttributionConfirmation && c.Checkout.StripeWebhookSecret == "" {
		return fmt.Errorf("missing required env STRIPE_WEBHOOK_SECRET")
	}
	return nil
}
