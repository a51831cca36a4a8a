package globals

import "os"

var (
	JwtSecret = secretFromEnv("JWT_SECRET", "your_secret_key")
	QrSecret  = secretFromEnv("QR_SECRET", "your-very-secret-key")
)

func secretFromEnv(key, fallback string) []byte {
	if v := os.Getenv(key); v != "" {
		return []byte(v)
	}
	return []byte(fallback)
}

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

// Actor roles carried in JWT claims.
const (
	RoleCustomer = "customer"
	RoleBusiness = "business"
)
