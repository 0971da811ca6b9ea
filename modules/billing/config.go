package billing

type Config struct {
	// CronSecret guards the downgrade-expired action. Empty disables it.
	CronSecret string `env:"CRON_SECRET"`
}
