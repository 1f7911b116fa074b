package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync/atomic"
)

// mockPingList is a typical remotely maintained ping list.
const mockPingList = `http://rpc.pingomatic.example/
http://blogsearch.example.com/ping/RPC2?site=#WEBSITE_URL#
http://ping.example.net/#WEBSITE_NAME#/
`

// StartMockSource serves a ping list at /ping.txt that sometimes fails.
//
// Roughly one request in five returns 503 and one in ten returns an empty
// body, so the demo shows every outcome. Call this in a goroutine.
func StartMockSource(addr string) {
	var requests atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/ping.txt", func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)

		switch roll := rand.Intn(10); {
		case roll < 2:
			slog.Info("mock source failing", "request", n)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		case roll < 3:
			slog.Info("mock source empty", "request", n)
			w.WriteHeader(http.StatusOK)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(mockPingList))
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock source error", "error", err)
	}
}
