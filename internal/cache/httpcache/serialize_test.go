package httpcache

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestSerializeDeserialize(t *testing.T) {
	resp := &http.Response{
		Status:     "404 Not Found",
		StatusCode: http.StatusNotFound,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Body:       io.NopCloser(strings.NewReader("gone")),
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
	}

	data, err := Serialize(resp)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	if !strings.HasPrefix(string(data), PREFIX) {
		t.Errorf("Serialized data does not start with prefix")
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	defer got.Body.Close()

	if got.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusNotFound)
	}

	body, err := io.ReadAll(got.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "gone" {
		t.Errorf("Body = %s, want gone", body)
	}
}

func TestDeserializeBadPrefix(t *testing.T) {
	if _, err := Deserialize([]byte("not a cache entry")); err == nil {
		t.Errorf("Deserialize() error = nil, want invalid prefix error")
	}

	if _, err := Deserialize([]byte("x")); err == nil {
		t.Errorf("Deserialize() error = nil for short input, want error")
	}
}
