package sheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestParseRows(t *testing.T) {
	text := "姓名,連結\r\n\"王小明\", https://drive.google.com/file/d/ABC/view \n\n李大仁,\n"
	got := ParseRows(text)
	want := [][]string{
		{"姓名", "連結"},
		{"王小明", "https://drive.google.com/file/d/ABC/view"},
		{"李大仁", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseRows = %v, want %v", got, want)
	}
}

func TestParseRowsEmpty(t *testing.T) {
	if rows := ParseRows(""); len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestFetchRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b\nc,d\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rows, err := c.FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestFetchRowsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).FetchRows(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewClientDefaultURL(t *testing.T) {
	if c := NewClient(""); c.URL != DefaultURL {
		t.Fatalf("default URL = %q", c.URL)
	}
}
