package config

import (
	"time"
)

// SafetyConfig holds the tunables of the emergency coordination core.
// The countdown length and tick interval are configuration, not part of
// the state machine itself.
type SafetyConfig struct {
	CountdownTicks      int           `yaml:"countdown_ticks"`
	CountdownInterval   time.Duration `yaml:"countdown_interval"`
	EmergencyNumber     string        `yaml:"emergency_number"`
	PositionFixTimeout  time.Duration `yaml:"position_fix_timeout"`
	PositionMaxAge      time.Duration `yaml:"position_max_age"`
	PositionPollEvery   time.Duration `yaml:"position_poll_every"`
	StoreWriteTimeout   time.Duration `yaml:"store_write_timeout"`
	ShareLinkBase       string        `yaml:"share_link_base"`
	NotifySMSEnabled    bool          `yaml:"notify_sms_enabled"`
	NotifyPushEnabled   bool          `yaml:"notify_push_enabled"`
	GeocodeNotification bool          `yaml:"geocode_notification"`
}

func loadSafetyConfig() *SafetyConfig {
	return &SafetyConfig{
		CountdownTicks:      getEnvAsInt("SOS_COUNTDOWN_TICKS", 5),
		CountdownInterval:   getEnvAsDuration("SOS_COUNTDOWN_INTERVAL", time.Second),
		EmergencyNumber:     getEnv("SOS_EMERGENCY_NUMBER", "911"),
		PositionFixTimeout:  getEnvAsDuration("POSITION_FIX_TIMEOUT", 10*time.Second),
		PositionMaxAge:      getEnvAsDuration("POSITION_MAX_AGE", 30*time.Second),
		PositionPollEvery:   getEnvAsDuration("POSITION_POLL_EVERY", 500*time.Millisecond),
		StoreWriteTimeout:   getEnvAsDuration("STORE_WRITE_TIMEOUT", 5*time.Second),
		ShareLinkBase:       getEnv("SHARE_LINK_BASE", "https://safecircle.app/share"),
		NotifySMSEnabled:    getEnvAsBool("NOTIFY_SMS_ENABLED", true),
		NotifyPushEnabled:   getEnvAsBool("NOTIFY_PUSH_ENABLED", true),
		GeocodeNotification: getEnvAsBool("GEOCODE_NOTIFICATION", true),
	}
}
