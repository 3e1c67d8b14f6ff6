package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	m := NewManager(NewFetcher(WithQueryToken("tok")))
	return m, srv
}

func TestManagerSingleLiveHandle(t *testing.T) {
	pdfData := buildTestPDF(2)
	m, srv := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfData)
	}))

	// Swap the slot between documents rapidly. At settle time exactly one
	// handle may be open and every prior handle must be destroyed.
	var handles []*Handle
	for i := 0; i < 3; i++ {
		h, err := m.Open(context.Background(), "correction", fmt.Sprintf("%s/essays/e%d/file", srv.URL, i), Credentials{})
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		handles = append(handles, h)
	}

	for i, h := range handles[:2] {
		if !h.Destroyed() {
			t.Errorf("handle #%d still live after being superseded", i)
		}
	}
	if handles[2].Destroyed() {
		t.Error("latest handle was destroyed")
	}
	live, ok := m.Handle("correction")
	if !ok || live != handles[2] {
		t.Error("slot does not expose the latest handle")
	}
}

func TestManagerSupersedesInflightLoad(t *testing.T) {
	pdfData := buildTestPDF(1)
	var slowStarted atomic.Bool
	release := make(chan struct{})
	m, srv := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "slow") {
			slowStarted.Store(true)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		w.Write(pdfData)
	}))
	defer close(release)

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background(), "correction", srv.URL+"/essays/slow/file", Credentials{})
		firstErr <- err
	}()

	waitFor(t, slowStarted.Load)

	h, err := m.Open(context.Background(), "correction", srv.URL+"/essays/fast/file", Credentials{})
	if err != nil {
		t.Fatalf("superseding Open: %v", err)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("superseded Open returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded Open never returned")
	}

	if live, ok := m.Handle("correction"); !ok || live != h {
		t.Error("in-flight load displaced the winning handle")
	}
}

func TestManagerClose(t *testing.T) {
	pdfData := buildTestPDF(1)
	m, srv := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfData)
	}))

	h, err := m.Open(context.Background(), "print", srv.URL+"/essays/e1/file", Credentials{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Close("print"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.Destroyed() {
		t.Error("handle survived Close")
	}
	if _, ok := m.Handle("print"); ok {
		t.Error("closed slot still exposes a handle")
	}
	if err := m.Close("print"); err != nil {
		t.Errorf("closing an unknown slot: %v", err)
	}
}

func TestManagerOpenFailureLeavesSlotEmpty(t *testing.T) {
	m, srv := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := m.Open(context.Background(), "correction", srv.URL+"/essays/missing/file", Credentials{}); err == nil {
		t.Fatal("Open succeeded against a 404 source")
	}
	if _, ok := m.Handle("correction"); ok {
		t.Error("failed load left a handle behind")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
