// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// gzipWriterPool pools gzip.Writer instances to reduce allocations.
var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

// CompressOnRequest gzips the response body when the query parameter param
// parses as true. Only successful responses are compressed; error bodies are
// passed through as written.
func CompressOnRequest(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			on, _ := strconv.ParseBool(r.URL.Query().Get(param))
			if !on {
				next.ServeHTTP(w, r)
				return
			}

			bw := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(bw, r)
			bw.flush()
		})
	}
}

// bufferedWriter holds the response until the handler returns so the
// compression decision can depend on the final status.
type bufferedWriter struct {
	http.ResponseWriter
	buffer     []byte
	statusCode int
}

func (bw *bufferedWriter) WriteHeader(statusCode int) {
	if bw.statusCode == 0 {
		bw.statusCode = statusCode
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.buffer = append(bw.buffer, b...)
	return len(b), nil
}

func (bw *bufferedWriter) flush() {
	status := bw.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	if status < 200 || status >= 300 || len(bw.buffer) == 0 {
		bw.ResponseWriter.WriteHeader(status)
		_, _ = bw.ResponseWriter.Write(bw.buffer)
		return
	}

	bw.Header().Set("Content-Encoding", "gzip")
	bw.Header().Add("Vary", "Accept-Encoding")
	bw.Header().Del("Content-Length")
	bw.ResponseWriter.WriteHeader(status)

	gz := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(bw.ResponseWriter)
	_, _ = gz.Write(bw.buffer)
	_ = gz.Close()
	gzipWriterPool.Put(gz)
}
