package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleBatch = `operations:
  - id: "1"
    method: GET
    path: Customers('ALFKI')
  - id: "2"
    method: POST
    path: Orders
    changeset: cs1
    body: '{"Total":10}'
  - id: "3"
    method: DELETE
    path: Orders(4)
    changeset: cs1
    headers:
      - name: If-Match
        value: "*"
changesets:
  - id: cs1
`

const sampleResponse = "--r\r\n" +
	"Content-Type: application/http\r\n" +
	"Content-ID: 1\r\n" +
	"\r\n" +
	"HTTP/1.1 200 OK\r\n" +
	"Content-Type: application/json\r\n" +
	"\r\n" +
	`{"Name":"Alfreds"}` + "\r\n" +
	"--r\r\n" +
	"Content-Type: multipart/mixed; boundary=c\r\n" +
	"\r\n" +
	"--c\r\n" +
	"Content-Type: application/http\r\n" +
	"Content-ID: 2\r\n" +
	"\r\n" +
	"HTTP/1.1 201 Created\r\n" +
	"\r\n" +
	"\r\n" +
	"--c\r\n" +
	"Content-Type: application/http\r\n" +
	"Content-ID: 3\r\n" +
	"\r\n" +
	"HTTP/1.1 204 No Content\r\n" +
	"\r\n" +
	"\r\n" +
	"--c--\r\n" +
	"--r--\r\n"

// isolate keeps the developer's environment out of the command under test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ODATA_SERVICE_URL", "")
	t.Setenv("ODATA_BARE_GUIDS", "")
	t.Setenv("ODATA_VERBOSE", "")
	t.Setenv("ODATA_CONTINUE_ON_ERROR", "")
	t.Setenv("ODATA_CONTENT_BOUNDARIES", "")
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--env-file", filepath.Join(dir, "missing.env"))
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestURLCommand(t *testing.T) {
	dir := isolate(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "filter and paging",
			args: []string{"url", "Products", "--filter", "Price gt 100 and contains(Name,'Pro')", "--top", "10", "--skip", "20"},
			want: "Products?$filter=Price%20gt%20100%20and%20contains(Name,'Pro')&$skip=20&$top=10",
		},
		{
			name: "composite key and navigation",
			args: []string{"url", "Orders", "--key", "CustomerId='ALFKI'", "--key", "OrderId=5", "--navigate", "Items"},
			want: "Orders(CustomerId='ALFKI',OrderId=5)/Items",
		},
		{
			name: "single string key",
			args: []string{"url", "People", "--key", "'O''Neil'"},
			want: "People('O''Neil')",
		},
		{
			name: "select expand orderby count",
			args: []string{"url", "Products", "--select", "Name,Price", "--expand", "Category", "--orderby", "Price desc", "--orderby", "Name", "--count"},
			want: "Products?$select=Name,Price&$expand=Category&$orderby=Price%20desc,Name&$count=true",
		},
		{
			name: "absolute with service",
			args: []string{"url", "Products", "--service", "https://example.com/odata/", "--count-segment"},
			want: "https://example.com/odata/Products/$count",
		},
		{
			name: "bare guid",
			args: []string{"url", "Devices", "--key", "0f8fad5b-d9cb-469f-a165-70867728950e", "--bare-guids"},
			want: "Devices(0f8fad5b-d9cb-469f-a165-70867728950e)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, dir, tt.args...)
			if err != nil {
				t.Fatalf("url %v: unexpected error: %v", tt.args, err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("url %v = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestURLCommandRejectsInvalidInput(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, dir, "url", "Products", "--filter", "Price gt")
	assert.Error(t, err)

	_, _, err = execute(t, dir, "url", "Orders", "--key", "5", "--key", "6")
	assert.Error(t, err)

	_, _, err = execute(t, dir, "url", "Products", "--param", "novalue")
	assert.Error(t, err)

	_, _, err = execute(t, dir, "url", "Products", "-H", "no-colon")
	assert.Error(t, err)
}

func TestURLCommandReadsConfigFile(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, dir, "client.yaml", "service_url: https://files.example.com/svc\nbare_guids: true\n")

	out, _, err := execute(t, dir, "url", "Devices", "--config", cfg, "--key", "0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/svc/Devices(0f8fad5b-d9cb-469f-a165-70867728950e)", strings.TrimSpace(out))
}

func TestBatchEncodeCommand(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "batch.yaml", sampleBatch)
	t.Setenv("ODATA_CONTENT_BOUNDARIES", "true")

	out, stderr, err := execute(t, dir, "batch", "encode", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Content-Type: multipart/mixed; boundary=batch_")
	assert.Contains(t, out, "GET Customers('ALFKI') HTTP/1.1\r\n")
	assert.Contains(t, out, "Content-Type: multipart/mixed; boundary=changeset_")
	assert.Contains(t, out, "If-Match: *\r\n")

	again, _, err := execute(t, dir, "batch", "encode", path)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestBatchEncodeRejectsInvalidBatch(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "batch.yaml", "operations:\n  - id: \"1\"\n    method: GET\n    path: People\n    changeset: cs1\n")

	_, _, err := execute(t, dir, "batch", "encode", path)
	assert.Error(t, err)
}

func TestBatchDecodeCommand(t *testing.T) {
	dir := isolate(t)
	batchPath := writeFile(t, dir, "batch.yaml", sampleBatch)
	respPath := writeFile(t, dir, "response.txt", sampleResponse)

	out, _, err := execute(t, dir, "batch", "decode", batchPath, respPath, "--content-type", "multipart/mixed; boundary=r")
	require.NoError(t, err)

	var report batchReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Len(t, report.Responses, 3)
	assert.Equal(t, "1", report.Responses[0].ID)
	assert.Equal(t, 200, report.Responses[0].Status)
	assert.Equal(t, `{"Name":"Alfreds"}`, report.Responses[0].Body)
	assert.Equal(t, 204, report.Responses[2].Status)
	assert.Equal(t, []changesetCheck{{ID: "cs1", Successful: true}}, report.Changesets)
}

func TestBatchDecodeReportsFailures(t *testing.T) {
	dir := isolate(t)
	batchPath := writeFile(t, dir, "batch.yaml", sampleBatch)
	truncated := strings.Split(sampleResponse, "--r\r\nContent-Type: multipart/mixed")[0] + "--r--\r\n"
	respPath := writeFile(t, dir, "response.txt", truncated)

	out, _, err := execute(t, dir, "batch", "decode", batchPath, respPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 operation(s) failed")

	var report batchReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "no response for operation", report.Responses[1].Error)
	assert.Equal(t, []changesetCheck{{ID: "cs1", Successful: false}}, report.Changesets)
}

func TestBatchSendCommand(t *testing.T) {
	dir := isolate(t)
	batchPath := writeFile(t, dir, "batch.yaml", sampleBatch)

	var gotTenant string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant")
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "multipart/mixed; boundary=r")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer server.Close()

	out, _, err := execute(t, dir, "batch", "send", batchPath, "--service", server.URL, "-H", "X-Tenant: acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", gotTenant)
	assert.Contains(t, out, "successful: true")
}

func TestBatchSendRequiresService(t *testing.T) {
	dir := isolate(t)
	batchPath := writeFile(t, dir, "batch.yaml", sampleBatch)

	_, _, err := execute(t, dir, "batch", "send", batchPath)
	assert.Error(t, err)
}

func TestParseKeyValue(t *testing.T) {
	assert.Equal(t, int64(42), parseKeyValue("42"))
	assert.Equal(t, "ALFKI", parseKeyValue("'ALFKI'"))
	assert.Equal(t, "it's", parseKeyValue("'it''s'"))
	assert.Equal(t, "plain", parseKeyValue("plain"))
	assert.IsType(t, parseKeyValue("0f8fad5b-d9cb-469f-a165-70867728950e"), parseKeyValue("00000000-0000-0000-0000-000000000000"))

	assert.True(t, isNamedKey("OrderId=5"))
	assert.False(t, isNamedKey("'a=b'"))
	assert.False(t, isNamedKey("5"))
	assert.False(t, isNamedKey("=5"))
}
