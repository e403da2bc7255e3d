package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsBuyerData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/checkout"),
		attribute.String("buyer.email", "ana@example.com"),
		attribute.String("buyer.phone", "6681234567"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}

func TestSafeErrorScrubsPersonalData(t *testing.T) {
	err := SafeError(errors.New("send to ana@example.com failed, phone 6681234567"))
	want := "send to [email] failed, phone [phone]"
	if err == nil || err.Error() != want {
		t.Fatalf("expected %q, got %v", want, err)
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
