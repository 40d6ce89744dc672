package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type APIConfig struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Snapshot persistence: file (default), redis or postgres.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	DataDir      string `envconfig:"DATA_DIR" default:"./data"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	RedisPass    string `envconfig:"REDIS_PASSWORD"`
	RedisDB      int    `envconfig:"REDIS_DB" default:"0"`
	DBDSN        string `envconfig:"DB_DSN"`

	// Origin used when building receipt and payment links.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:3000"`
	SupportPhone  string `envconfig:"SUPPORT_PHONE" default:"+91 XXXXXXXXXX"`

	// Background retry loop.
	RetryIntervalSeconds int `envconfig:"RETRY_INTERVAL_SECONDS" default:"5"`

	// SMS transport. Empty base URL keeps the transport in simulated mode.
	SMSBaseURL    string  `envconfig:"SMS_BASE_URL"`
	SMSAccountSID string  `envconfig:"SMS_ACCOUNT_SID" default:"ACCOUNT_SID_PLACEHOLDER"`
	SMSAuthToken  string  `envconfig:"SMS_AUTH_TOKEN" default:"AUTH_TOKEN_PLACEHOLDER"`
	SMSFromNumber string  `envconfig:"SMS_FROM_NUMBER" default:"+10000000000"`
	SMSRPS        float64 `envconfig:"SMS_RPS" default:"5"`
	SMSBurst      int     `envconfig:"SMS_BURST" default:"10"`

	StoreName string `envconfig:"STORE_NAME" default:"Mammta's Food"`
	UPIID     string `envconfig:"UPI_ID" default:"9309908454@ybl"`
}

type MockProviderConfig struct {
	Port      string `envconfig:"PORT" default:"8081"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	AccountSID string `envconfig:"SMS_ACCOUNT_SID" default:"mock_sid"`
	AuthToken  string `envconfig:"SMS_AUTH_TOKEN" default:"mock_token"`

	OutcomeMode string  `envconfig:"MOCK_OUTCOME_MODE" default:"fixed"`
	OutcomesRaw string  `envconfig:"MOCK_OUTCOMES" default:"ok"`
	SuccessRate float64 `envconfig:"MOCK_SUCCESS_RATE" default:"0.95"`
	DelayMs     int     `envconfig:"MOCK_DELAY_MS" default:"0"`
}

func LoadAPI() APIConfig {
	_ = godotenv.Load()
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadMockProvider() MockProviderConfig {
	_ = godotenv.Load()
	var cfg MockProviderConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
