// Package apitest provides an in-process catalog upstream for tests. It serves
// <endpoint>/<name> documents and paginated <endpoint>?limit=N listings whose
// next links point back at the stub, and records every request it receives.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// RecordedRequest 捕获每次请求的方法/路径/查询串，便于断言缓存行为。
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
}

// Catalog 是可编程的上游模拟器。
type Catalog struct {
	server *httptest.Server
	URL    string

	mu       sync.Mutex
	docs     map[string]map[string]any
	failures map[string]int
	requests []RecordedRequest
	gate     chan struct{}
}

// NewCatalog 启动模拟器，测试结束时自动关闭。
func NewCatalog(t testing.TB) *Catalog {
	t.Helper()
	c := &Catalog{
		docs:     make(map[string]map[string]any),
		failures: make(map[string]int),
	}
	c.server = httptest.NewServer(http.HandlerFunc(c.serve))
	c.URL = c.server.URL
	t.Cleanup(c.server.Close)
	return c
}

// Add 注册一个文档。doc 为 nil 时写入 {"id":n,"name":name}。
func (c *Catalog) Add(endpoint, name string, doc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs[endpoint] == nil {
		c.docs[endpoint] = make(map[string]any)
	}
	if doc == nil {
		doc = map[string]any{"id": len(c.docs[endpoint]) + 1, "name": name}
	}
	c.docs[endpoint][name] = doc
}

// Fail 让 /<endpoint>/<name> 返回指定状态码，status 为 0 时取消。
func (c *Catalog) Fail(endpoint, name string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := "/" + endpoint + "/" + name
	if status == 0 {
		delete(c.failures, key)
		return
	}
	c.failures[key] = status
}

// Hold 让之后的请求阻塞，直到返回的函数被调用。
func (c *Catalog) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gate == gate {
				c.gate = nil
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Requests 返回已记录请求的副本。
func (c *Catalog) Requests() []RecordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RecordedRequest(nil), c.requests...)
}

// Count 返回命中某个路径的请求数。
func (c *Catalog) Count(path string) int {
	n := 0
	for _, r := range c.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Base 返回可直接作为客户端 BaseURL 的地址。
func (c *Catalog) Base() string {
	return c.URL
}

func (c *Catalog) serve(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests = append(c.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	gate := c.gate
	status := c.failures[r.URL.Path]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch len(parts) {
	case 1:
		c.serveListing(w, r, parts[0])
	case 2:
		c.serveDocument(w, parts[0], parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (c *Catalog) serveDocument(w http.ResponseWriter, endpoint, name string) {
	c.mu.Lock()
	doc, ok := c.docs[endpoint][name]
	c.mu.Unlock()
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, doc)
}

func (c *Catalog) serveListing(w http.ResponseWriter, r *http.Request, endpoint string) {
	c.mu.Lock()
	names := make([]string, 0, len(c.docs[endpoint]))
	for name := range c.docs[endpoint] {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)

	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	if limit <= 0 {
		limit = 20
	}
	end := min(offset+limit, len(names))
	start := min(offset, end)

	results := make([]map[string]string, 0, end-start)
	for _, name := range names[start:end] {
		results = append(results, map[string]string{
			"name": name,
			"url":  fmt.Sprintf("%s/%s/%s/", c.URL, endpoint, name),
		})
	}

	var next any
	if end < len(names) {
		next = fmt.Sprintf("%s/%s?offset=%d&limit=%d", c.URL, endpoint, end, limit)
	}
	writeJSON(w, map[string]any{
		"count":    len(names),
		"next":     next,
		"previous": nil,
		"results":  results,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
