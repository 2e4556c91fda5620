package msdynamics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stockup/backend/internal/domain/integration"
)

// EncodeBatch builds one $batch envelope: an outer batch part wrapping a
// single changeset, with every record framed as a raw HTTP POST sub-request
// carrying a sequential Content-ID starting at 1. Encoding is pure; the
// returned boundary goes into the request's Content-Type header.
func EncodeBatch(resource, table string, records []integration.Entity, batchNumber int) ([]byte, string, error) {
	if len(records) == 0 {
		return nil, "", fmt.Errorf("%w: empty batch", integration.ErrInvalidInput)
	}

	batchBoundary := fmt.Sprintf("batch_%d", batchNumber)
	changesetBoundary := fmt.Sprintf("changeset_%d", batchNumber)
	target := entityURL(resource, table)
	host := resourceHost(resource)

	var b strings.Builder
	b.WriteString("--" + batchBoundary + "\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=" + changesetBoundary + "\r\n")
	b.WriteString("\r\n")

	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, "", fmt.Errorf("%w: record %d: %v", integration.ErrInvalidInput, i+1, err)
		}

		b.WriteString("--" + changesetBoundary + "\r\n")
		b.WriteString("Content-Type: application/http\r\n")
		b.WriteString("Content-Transfer-Encoding: binary\r\n")
		b.WriteString(fmt.Sprintf("Content-ID: %d\r\n", i+1))
		b.WriteString("\r\n")

		b.WriteString("POST " + target + " HTTP/1.1\r\n")
		b.WriteString("Host: " + host + "\r\n")
		b.WriteString("Content-Type: application/json\r\n")
		b.WriteString("Accept-Charset: UTF-8\r\n")
		b.WriteString("\r\n")
		b.Write(payload)
		b.WriteString("\r\n")
	}

	b.WriteString("--" + changesetBoundary + "--\r\n")
	b.WriteString("--" + batchBoundary + "--\r\n")

	return []byte(b.String()), batchBoundary, nil
}
