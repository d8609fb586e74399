package mongostore

import "time"

// Config represents the connection settings for MongoDB.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`                         // ConnectionURL is the URL of the server.
	Database        string        `env:"MONGODB_DATABASE" envDefault:"authgate"`       // Database holds every auth collection.
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`     // ConnectTimeout bounds each connection attempt.
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`       // MaxPoolSize caps pooled connections.
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`         // MinPoolSize keeps warm connections.
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"` // MaxConnIdleTime closes idle pooled connections.
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`        // RetryAttempts is the number of connection attempts.
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`       // RetryInterval is the pause between attempts.
}

// Collections names the collections the auth engine uses.
type Collections struct {
	Users              string
	Admins             string
	VerificationTokens string
	CSRFTokens         string
	Logs               string
}

func (c Collections) all() []string {
	return []string{c.Users, c.Admins, c.VerificationTokens, c.CSRFTokens, c.Logs}
}
