package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/shikumiya/airtable-client/internal/testutil"
	"github.com/shikumiya/airtable-client/pkg/client"
	"github.com/shikumiya/airtable-client/pkg/query"
)

const (
	testBase  = "appCLI"
	testTable = "Tasks"
	testKey   = "keyCLI"
)

func setupMock(t *testing.T) *testutil.MockAirtable {
	t.Helper()
	mock := testutil.NewMockAirtable(testBase, testTable, testKey)
	t.Cleanup(mock.Close)
	return mock
}

// run executes the CLI against mock and decodes its output.
func run(t *testing.T, mock *testutil.MockAirtable, args ...string) (output, error) {
	t.Helper()

	cmd := rootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args,
		"--base", testBase,
		"--table", testTable,
		"--api-key", testKey,
		"--api-url", mock.URL(),
	))

	err := cmd.ExecuteContext(context.Background())

	var out output
	if buf.Len() > 0 {
		if jerr := json.Unmarshal(buf.Bytes(), &out); jerr != nil {
			t.Fatalf("output is not JSON: %v\n%s", jerr, buf.String())
		}
	}
	return out, err
}

func TestList(t *testing.T) {
	mock := setupMock(t)
	mock.Seed(5)

	out, err := run(t, mock, "list", "--max", "2", "--sort", "Name:desc", "--field", "Name", "--view", "Grid")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out.Records) != 2 {
		t.Errorf("records = %d, want 2", len(out.Records))
	}

	q := mock.Requests()[0].Query
	if q["sort[0][field]"][0] != "Name" || q["sort[0][direction]"][0] != "desc" {
		t.Errorf("sort not sent: %v", q)
	}
	if q["view"][0] != "Grid" || q["fields"][0] != "Name" {
		t.Errorf("view/fields not sent: %v", q)
	}
}

func TestList_All(t *testing.T) {
	mock := setupMock(t)
	mock.Seed(12)

	out, err := run(t, mock, "list", "--all", "--page-size", "5")
	if err != nil {
		t.Fatalf("list --all failed: %v", err)
	}
	if len(out.Records) != 12 || out.Offset != "" {
		t.Errorf("records = %d, offset = %q", len(out.Records), out.Offset)
	}
	if n := mock.RequestCount(http.MethodGet); n != 3 {
		t.Errorf("GET requests = %d, want 3", n)
	}
}

func TestList_BadSort(t *testing.T) {
	mock := setupMock(t)

	if _, err := run(t, mock, "list", "--sort", "Name:sideways"); err == nil {
		t.Error("expected error for bad direction")
	}
	if mock.RequestCount("") != 0 {
		t.Error("request sent despite bad flag")
	}
}

func TestFind(t *testing.T) {
	mock := setupMock(t)
	seeded := mock.Seed(3)

	out, err := run(t, mock, "find", seeded[1].ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(out.Records) != 1 || out.Records[0].ID != seeded[1].ID {
		t.Errorf("records = %+v", out.Records)
	}

	if _, err := run(t, mock, "find", "recNOPE"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing record error = %v", err)
	}
}

func TestInsertUpdateDelete(t *testing.T) {
	mock := setupMock(t)

	out, err := run(t, mock, "insert", "--json", `{"Name":"cli"}`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	id := out.Records[0].ID

	out, err = run(t, mock, "update", id, "--json", `{"Done":true}`)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if out.Records[0].Fields["Name"] != "cli" || out.Records[0].Fields["Done"] != true {
		t.Errorf("updated fields = %v", out.Records[0].Fields)
	}

	out, err = run(t, mock, "delete", id)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !out.Records[0].Deleted {
		t.Errorf("delete output = %+v", out.Records)
	}
}

func TestInsert_BadJSON(t *testing.T) {
	mock := setupMock(t)

	if _, err := run(t, mock, "insert", "--json", `{oops`); err == nil {
		t.Error("expected parse error")
	}
}

func TestBulkInsert_File(t *testing.T) {
	mock := setupMock(t)

	rows := make([]client.Fields, 12)
	for i := range rows {
		rows[i] = client.Fields{"Index": i}
	}
	data, _ := json.Marshal(rows)
	path := filepath.Join(t.TempDir(), "rows.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, mock, "bulk-insert", "--file", path)
	if err != nil {
		t.Fatalf("bulk-insert failed: %v", err)
	}
	if len(out.Records) != 12 {
		t.Errorf("records = %d, want 12", len(out.Records))
	}
	if n := mock.RequestCount(http.MethodPost); n != 2 {
		t.Errorf("POST requests = %d, want 2", n)
	}
}

func TestDelete_Many(t *testing.T) {
	mock := setupMock(t)
	seeded := mock.Seed(3)

	out, err := run(t, mock, "delete", seeded[0].ID, seeded[1].ID, seeded[2].ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(out.Records) != 3 || mock.RequestCount(http.MethodDelete) != 3 {
		t.Errorf("deleted %d with %d requests", len(out.Records), mock.RequestCount(http.MethodDelete))
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("AIRTABLE_API_KEY", "")

	cmd := rootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"list", "--base", testBase, "--table", testTable})

	if err := cmd.Execute(); !errors.Is(err, client.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestEnvDefaults(t *testing.T) {
	mock := setupMock(t)
	mock.Seed(1)
	t.Setenv("AIRTABLE_API_KEY", testKey)
	t.Setenv("AIRTABLE_BASE_ID", testBase)
	t.Setenv("AIRTABLE_API_URL", mock.URL())

	cmd := rootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"list", "--table", testTable})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("list with env config failed: %v", err)
	}
}

func TestRedisLockoutStore(t *testing.T) {
	mock := setupMock(t)
	mock.Enqueue(testutil.MockResponse{StatusCode: http.StatusTooManyRequests})
	mr := miniredis.RunT(t)

	if _, err := run(t, mock, "list", "--redis", mr.Addr()); !client.IsRateLimited(err) {
		t.Fatalf("first run error = %v, want 429", err)
	}
	if !mr.Exists("airtable:rate_limit:" + testBase + ":lockout") {
		t.Fatal("lockout not written to redis")
	}

	// A fresh process sees the lockout and never reaches the server.
	if _, err := run(t, mock, "list", "--redis", "redis://"+mr.Addr()); err == nil {
		t.Error("second run succeeded during lockout")
	}
	if n := mock.RequestCount(""); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestParseSorts(t *testing.T) {
	tests := []struct {
		in      []string
		want    []query.SortField
		wantErr bool
	}{
		{in: nil, want: nil},
		{in: []string{"Name"}, want: []query.SortField{{Field: "Name", Direction: query.Asc}}},
		{in: []string{"Age:DESC", "Name:asc"}, want: []query.SortField{{Field: "Age", Direction: query.Desc}, {Field: "Name", Direction: query.Asc}}},
		{in: []string{":desc"}, wantErr: true},
		{in: []string{"Name:up"}, wantErr: true},
	}

	for _, tt := range tests {
		sorter, err := parseSorts(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSorts(%v) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseSorts(%v) error = %v", tt.in, err)
		}

		want := query.ApplySort(nil, query.SortList(tt.want))
		if got := sorter.Build(); got.Encode() != want.Encode() {
			t.Errorf("parseSorts(%v) = %s, want %s", tt.in, got.Encode(), want.Encode())
		}
	}
}
