package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mem://receipts/id", cfg.ReceiptsDocstoreURL)
				assert.Equal(t, "mem://receipts-message-errors/id", cfg.ErrorReceiptsDocstoreURL)
				assert.Equal(t, "mem://cart-receipts/id", cfg.CartsDocstoreURL)
				assert.Equal(t, "mem://cart-message-errors/id", cfg.ErrorCartsDocstoreURL)
				assert.Equal(t, "mem://biz-events/id", cfg.BizEventsDocstoreURL)
				assert.Equal(t, "mem://receipt-queue", cfg.ReceiptQueueURL)
				assert.Equal(t, "mem://receipt-poison-queue", cfg.ReceiptPoisonQueueURL)
				assert.Equal(t, "mem://", cfg.BlobBucketURL)
				assert.Equal(t, 10*time.Second, cfg.ProcessTime)
				assert.Equal(t, "weekly", cfg.DateRange)
				assert.Equal(t, "report.json", cfg.ReportOutputFile)
				assert.Equal(t, 700*time.Millisecond, cfg.RegenerateThrottle)
				assert.False(t, cfg.Canary)
				assert.Equal(t, "info", cfg.LogLevel)
			},
		},
		{
			name: "load custom datastore configuration",
			envVars: map[string]string{
				"RECEIPTS_DOCSTORE_URL":       "mongo://receiptsdb/receipts?id_field=id",
				"ERROR_RECEIPTS_DOCSTORE_URL": "mongo://receiptsdb/receipts-message-errors?id_field=id",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mongo://receiptsdb/receipts?id_field=id", cfg.ReceiptsDocstoreURL)
				assert.Equal(
					t,
					"mongo://receiptsdb/receipts-message-errors?id_field=id",
					cfg.ErrorReceiptsDocstoreURL,
				)
			},
		},
		{
			name: "load custom queue configuration",
			envVars: map[string]string{
				"RECEIPT_QUEUE_URL":        "azuresb://pagopa-receipt-queue",
				"RECEIPT_POISON_QUEUE_URL": "azuresb://pagopa-receipt-queue-poison",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "azuresb://pagopa-receipt-queue", cfg.ReceiptQueueURL)
				assert.Equal(t, "azuresb://pagopa-receipt-queue-poison", cfg.ReceiptPoisonQueueURL)
			},
		},
		{
			name: "load helpdesk configuration",
			envVars: map[string]string{
				"HELPDESK_URL":    "https://api.example.org/helpdesk/",
				"HELPDESK_SUBKEY": "sub-key",
				"CANARY":          "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://api.example.org/helpdesk/", cfg.HelpdeskURL)
				assert.Equal(t, "sub-key", cfg.HelpdeskSubKey)
				assert.True(t, cfg.Canary)
			},
		},
		{
			name: "load custom timing configuration",
			envVars: map[string]string{
				"PROCESS_TIME_MS":        "5000",
				"REGENERATE_THROTTLE_MS": "1000",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Second, cfg.ProcessTime)
				assert.Equal(t, time.Second, cfg.RegenerateThrottle)
			},
		},
		{
			name: "load custom report window",
			envVars: map[string]string{
				"DATE_RANGE":        "custom",
				"CUSTOM_START_DATE": "2026-01-01",
				"CUSTOM_END_DATE":   "2026-01-31",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "custom", cfg.DateRange)
				assert.Equal(t, "2026-01-01", cfg.CustomStartDate)
				assert.Equal(t, "2026-01-31", cfg.CustomEndDate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			// Load configuration
			cfg := Load()

			// Validate
			tt.validate(t, cfg)
		})
	}
}
