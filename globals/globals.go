package globals

import (
	"context"
	"os"
)

var JwtSecret = []byte(jwtSecret())

func jwtSecret() string {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return s
	}
	return "bokutabi_dev_secret" // override in production via JWT_SECRET
}

// Context keys
type ContextKey string

const TripIDKey ContextKey = "tripId"

var Ctx = context.Background()
