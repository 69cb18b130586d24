package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendSMS(t *testing.T) {
	var gotRecipient, gotText, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/service/message/sendsmsmessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotRecipient = r.PostForm.Get("recipient")
		gotText = r.PostForm.Get("text")
		gotKey = r.PostForm.Get("apiKey")
		_, _ = w.Write([]byte(`{"code":0,"data":{"messageId":"m-1"}}`))
	}))
	defer srv.Close()

	c := NewClientWithOptions("key", "", srv.URL, false, nil)
	resp, err := c.SendSMS(context.Background(), "+966555123456", "code 123456")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if resp.Data.MessageID != "m-1" {
		t.Fatalf("message id = %q", resp.Data.MessageID)
	}
	if gotRecipient != "966555123456" || gotText != "code 123456" || gotKey != "key" {
		t.Fatalf("unexpected form: recipient=%q text=%q key=%q", gotRecipient, gotText, gotKey)
	}
}

func TestClientSendSMSProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"message":"bad recipient"}`))
	}))
	defer srv.Close()

	c := NewClientWithOptions("key", "", srv.URL, false, nil)
	if _, err := c.SendSMS(context.Background(), "+1", "x"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestClientDryRunSkipsHTTP(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClientWithOptions("key", "", srv.URL, true, nil)
	if _, err := c.SendSMS(context.Background(), "+966", "x"); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if called {
		t.Fatal("dry run must not call the provider")
	}
}
