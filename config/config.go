package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Clinic details shown to patients.
	ClinicName  string `mapstructure:"CLINIC_NAME"`
	ClinicPhone string `mapstructure:"CLINIC_PHONE"`
	Timezone    string `mapstructure:"TIMEZONE"`

	// Working-hours grid for appointments.
	WorkStartHour   int `mapstructure:"WORK_START_HOUR"`
	WorkEndHour     int `mapstructure:"WORK_END_HOUR"`
	SlotDurationMin int `mapstructure:"SLOT_DURATION_MIN"`
	HorizonDays     int `mapstructure:"BOOKING_HORIZON_DAYS"`

	// Google Calendar.
	GoogleCalendarID      string `mapstructure:"GOOGLE_CALENDAR_ID"`
	GoogleCredentialsFile string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`

	// Twilio WhatsApp.
	TwilioAccountSID     string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber string `mapstructure:"TWILIO_WHATSAPP_NUMBER"`

	// Conversation session store.
	SessionStore  string `mapstructure:"SESSION_STORE"` // "memory" or "redis"
	SessionTTLMin int    `mapstructure:"SESSION_TTL_MIN"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("CLINIC_NAME", "Clínica Dr. Silva")
	viper.SetDefault("CLINIC_PHONE", "(41) 3333-4444")
	viper.SetDefault("TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("WORK_START_HOUR", 9)
	viper.SetDefault("WORK_END_HOUR", 17)
	viper.SetDefault("SLOT_DURATION_MIN", 30)
	viper.SetDefault("BOOKING_HORIZON_DAYS", 14)
	viper.SetDefault("SESSION_STORE", "memory")
	viper.SetDefault("SESSION_TTL_MIN", 30)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
