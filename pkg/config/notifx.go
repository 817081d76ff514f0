package config

// NotifxConfig selects the email provider and the sender identity.
type NotifxConfig struct {
	// Provider is console or ses.
	Provider    string
	FromAddress string
	FromName    string
	AWSRegion   string
	// ConfigurationSet is the SES configuration set used for delivery
	// events. Empty disables it.
	ConfigurationSet string
	// AppURL is linked from transactional emails.
	AppURL string
}

func loadNotifxConfig() NotifxConfig {
	return NotifxConfig{
		Provider:         getEnv("NOTIFX_PROVIDER", "console"),
		FromAddress:      getEnv("NOTIFX_FROM_ADDRESS", "noreply@rentify.app"),
		FromName:         getEnv("NOTIFX_FROM_NAME", "Rentify"),
		AWSRegion:        getEnv("NOTIFX_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
		ConfigurationSet: getEnv("NOTIFX_SES_CONFIGURATION_SET", ""),
		AppURL:           getEnv("APP_URL", "http://localhost:3000"),
	}
}
