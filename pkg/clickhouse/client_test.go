package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSNNative(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "fxcast", User: "default",
		DialTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second,
	})
	want := "clickhouse://default:@ch:9000/fxcast?dial_timeout=5s&read_timeout=10s"
	if dsn != want {
		t.Fatalf("expected %s, got %s", want, dsn)
	}
}

func TestBuildDSNHTTPAsync(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 8123, Database: "fxcast", User: "u", Password: "p",
		UseHTTP: true, AsyncInsert: true, WaitForAsync: true,
	})
	want := "clickhouse+http://u:p@ch:8123/fxcast?async_insert=1&wait_for_async_insert=1"
	if dsn != want {
		t.Fatalf("expected %s, got %s", want, dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithPort(9000)); err == nil {
		t.Fatalf("expected error without host")
	}
}
