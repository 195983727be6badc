// Package config provides harness configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all harness configuration.
//
// The defaults point at gocloud.dev in-memory drivers so the suite and the
// operational commands run hermetically when no real environment is wired.
type Config struct {
	// ReceiptsDocstoreURL is the gocloud docstore URL for the receipts collection.
	ReceiptsDocstoreURL string
	// ErrorReceiptsDocstoreURL is the docstore URL for the receipt-message-errors collection.
	ErrorReceiptsDocstoreURL string
	// CartsDocstoreURL is the docstore URL for the cart receipts collection.
	CartsDocstoreURL string
	// ErrorCartsDocstoreURL is the docstore URL for the cart-message-errors collection.
	ErrorCartsDocstoreURL string
	// BizEventsDocstoreURL is the docstore URL for the biz-events collection.
	BizEventsDocstoreURL string

	// ReceiptQueueURL is the gocloud pubsub URL for the main receipt queue.
	ReceiptQueueURL string
	// ReceiptPoisonQueueURL is the pubsub URL for the receipt poison queue.
	ReceiptPoisonQueueURL string
	// CartQueueURL is the pubsub URL for the main cart queue.
	CartQueueURL string
	// CartPoisonQueueURL is the pubsub URL for the cart poison queue.
	CartPoisonQueueURL string

	// BlobBucketURL is the gocloud blob URL for the generated PDF container.
	BlobBucketURL string

	// AESSecretKey is the out-of-band secret shared with the system under test.
	AESSecretKey string
	// AESSalt is the PBKDF2 salt shared with the system under test.
	AESSalt string

	// HelpdeskURL is the base URL of the system under test's helpdesk API.
	HelpdeskURL string
	// HelpdeskSubKey is the APIM subscription key for the helpdesk API.
	HelpdeskSubKey string
	// Canary tags helpdesk requests with the canary routing header.
	Canary bool

	// ProcessTime is the bounded wait for the system under test to settle.
	ProcessTime time.Duration

	// DateRange selects the report window (daily, weekly, dozen, monthly, custom).
	DateRange string
	// CustomStartDate is the explicit window start (YYYY-MM-DD) when DateRange is custom.
	CustomStartDate string
	// CustomEndDate is the explicit window end (YYYY-MM-DD) when DateRange is custom.
	CustomEndDate string
	// ReportOutputFile is the path the report JSON artifact is written to.
	ReportOutputFile string

	// RegenerateThrottle is the pause between two regenerate-PDF requests.
	RegenerateThrottle time.Duration
	// RegenerateFrom is the lower bound (YYYY-MM-DD) of the regeneration window.
	RegenerateFrom string
	// RegenerateTo is the upper bound (YYYY-MM-DD) of the regeneration window.
	RegenerateTo string

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Datastore collections
		ReceiptsDocstoreURL:      env.GetString("RECEIPTS_DOCSTORE_URL", "mem://receipts/id"),
		ErrorReceiptsDocstoreURL: env.GetString("ERROR_RECEIPTS_DOCSTORE_URL", "mem://receipts-message-errors/id"),
		CartsDocstoreURL:         env.GetString("CARTS_DOCSTORE_URL", "mem://cart-receipts/id"),
		ErrorCartsDocstoreURL:    env.GetString("ERROR_CARTS_DOCSTORE_URL", "mem://cart-message-errors/id"),
		BizEventsDocstoreURL:     env.GetString("BIZ_EVENTS_DOCSTORE_URL", "mem://biz-events/id"),

		// Queues
		ReceiptQueueURL:       env.GetString("RECEIPT_QUEUE_URL", "mem://receipt-queue"),
		ReceiptPoisonQueueURL: env.GetString("RECEIPT_POISON_QUEUE_URL", "mem://receipt-poison-queue"),
		CartQueueURL:          env.GetString("CART_QUEUE_URL", "mem://cart-queue"),
		CartPoisonQueueURL:    env.GetString("CART_POISON_QUEUE_URL", "mem://cart-poison-queue"),

		// Blob storage
		BlobBucketURL: env.GetString("BLOB_BUCKET_URL", "mem://"),

		// Payload cipher
		AESSecretKey: env.GetString("AES_SECRET_KEY", ""),
		AESSalt:      env.GetString("AES_SALT", ""),

		// Helpdesk API
		HelpdeskURL:    env.GetString("HELPDESK_URL", ""),
		HelpdeskSubKey: env.GetString("HELPDESK_SUBKEY", ""),
		Canary:         env.GetBool("CANARY", false),

		// Scenario timing
		ProcessTime: env.GetDuration("PROCESS_TIME_MS", 10000, time.Millisecond),

		// Report
		DateRange:        env.GetString("DATE_RANGE", "weekly"),
		CustomStartDate:  env.GetString("CUSTOM_START_DATE", ""),
		CustomEndDate:    env.GetString("CUSTOM_END_DATE", ""),
		ReportOutputFile: env.GetString("REPORT_OUTPUT_FILE", "report.json"),

		// Regenerate
		RegenerateThrottle: env.GetDuration("REGENERATE_THROTTLE_MS", 700, time.Millisecond),
		RegenerateFrom:     env.GetString("REGENERATE_FROM", ""),
		RegenerateTo:       env.GetString("REGENERATE_TO", ""),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
