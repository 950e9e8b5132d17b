package routes

import (
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/dex"
	"github.com/pkdex/pkdex/internal/kind"
	"github.com/pkdex/pkdex/internal/version"
)

// RegisterDiagnosticRoutes 暴露 /-/status 与 /-/kinds 诊断接口。
// /-/status 会取走共享错误队列中累积的错误，每个错误只返回一次。
func RegisterDiagnosticRoutes(app *fiber.App, d *dex.Dex) {
	if app == nil || d == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.JSON(statusPayload{
			Version: version.Full(),
			Cache:   d.Client().Memo().Store().Stats(),
			Errors:  encodeErrors(d.Errors().Drain()),
		})
	})

	app.Get("/-/kinds", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"kinds": encodeKinds(d.Kinds())})
	})
}

type statusPayload struct {
	Version string      `json:"version"`
	Cache   cache.Stats `json:"cache"`
	Errors  []string    `json:"errors"`
}

type kindPayload struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
	PageSize    int    `json:"page_size"`
	Download    bool   `json:"download"`
}

func encodeErrors(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func encodeKinds(kinds []kind.Metadata) []kindPayload {
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Key < kinds[j].Key
	})
	result := make([]kindPayload, 0, len(kinds))
	for _, meta := range kinds {
		result = append(result, kindPayload{
			Key:         meta.Key,
			Description: meta.Description,
			Endpoint:    meta.Endpoint,
			PageSize:    meta.PageSize,
			Download:    meta.Download,
		})
	}
	return result
}
