package msdynamics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockup/backend/internal/domain/integration"
)

func TestEncodeBatch(t *testing.T) {
	records := []integration.Entity{
		{"ItemNumber": "SKU-001", "TransferQuantity": 10},
		{"ItemNumber": "SKU-002", "TransferQuantity": 5},
		{"ItemNumber": "SKU-003", "TransferQuantity": 2},
	}

	t.Run("builds envelope with sequential content ids", func(t *testing.T) {
		body, boundary, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", records, 1)
		require.NoError(t, err)

		assert.Equal(t, "batch_1", boundary)
		payload := string(body)

		assert.Contains(t, payload, "--batch_1\r\n")
		assert.Contains(t, payload, "Content-Type: multipart/mixed; boundary=changeset_1")
		assert.Contains(t, payload, "Content-ID: 1\r\n")
		assert.Contains(t, payload, "Content-ID: 2\r\n")
		assert.Contains(t, payload, "Content-ID: 3\r\n")
		assert.NotContains(t, payload, "Content-ID: 4")

		// each record becomes one framed POST sub-request
		assert.Equal(t, 3, strings.Count(payload, "POST https://erp.example.com/data/TransferOrderLines HTTP/1.1"))
		assert.Equal(t, 3, strings.Count(payload, "Content-Type: application/http"))
		assert.Contains(t, payload, "Host: erp.example.com\r\n")
		assert.Contains(t, payload, `"ItemNumber":"SKU-002"`)
	})

	t.Run("closes both boundaries", func(t *testing.T) {
		body, _, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", records, 2)
		require.NoError(t, err)

		payload := string(body)
		assert.Contains(t, payload, "--changeset_2--\r\n")
		assert.True(t, strings.HasSuffix(payload, "--batch_2--\r\n"))
	})

	t.Run("boundary follows batch number", func(t *testing.T) {
		_, boundary, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", records, 7)
		require.NoError(t, err)
		assert.Equal(t, "batch_7", boundary)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		_, _, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", nil, 1)
		assert.ErrorIs(t, err, integration.ErrInvalidInput)
	})

	t.Run("is deterministic for identical input", func(t *testing.T) {
		first, _, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", records, 1)
		require.NoError(t, err)
		second, _, err := EncodeBatch("https://erp.example.com/", "TransferOrderLines", records, 1)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
