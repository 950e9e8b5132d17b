// Package model declares the catalog entities returned by the upstream API.
// Fields follow the upstream JSON field names so values round-trip through the
// disk cache unchanged.
package model

import (
	"net/url"
	"path"
	"strings"
)

// NamedResource 是上游对象之间的超链接：一个可选名字加上完整 URL。
type NamedResource struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// Slug 返回 URL 的最后一段（通常是数字 ID），解析失败时返回空串。
func (r NamedResource) Slug() string {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return path.Base(strings.TrimSuffix(parsed.Path, "/"))
}

// Label 优先返回名字，没有名字时退回 Slug。
func (r NamedResource) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Slug()
}

// Page 是列表接口返回的一页结果。
type Page struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// Names 返回本页结果的名字。
func (p Page) Names() []string {
	out := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		out = append(out, r.Label())
	}
	return out
}
