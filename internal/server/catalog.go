package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/api"
	"github.com/pkdex/pkdex/internal/dex"
	"github.com/pkdex/pkdex/internal/loader"
	"github.com/pkdex/pkdex/internal/logging"
)

// retryAfterSeconds 是 202 响应建议的轮询间隔。
const retryAfterSeconds = "1"

type catalogHandler struct {
	dex    *dex.Dex
	logger *logrus.Logger
}

// resource 处理 GET /api/:kind/:name。
// 就绪返回 200 + 实体，加载中返回 202，失败返回 502（上游 404 时返回 404）。
// ?retry=1 会在失败状态下重新发起一次加载。
func (h *catalogHandler) resource(c fiber.Ctx) error {
	key := normalize(c.Params("kind"))
	name := normalize(c.Params("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name_required"})
	}

	if truthy(c.Query("retry")) {
		if _, err := h.dex.Retry(key, name); err != nil {
			return renderDexError(c, err)
		}
	}

	res, err := h.dex.Lookup(key, name)
	if err != nil {
		return renderDexError(c, err)
	}

	switch res.State {
	case loader.SlotReady:
		return c.JSON(res.Value)
	case loader.SlotFailed:
		fields := logging.FetchFields(key, name, "")
		fields["request_id"] = RequestID(c)
		h.logger.WithFields(fields).WithError(res.Err).Debug("resource_failed")

		status := fiber.StatusBadGateway
		code := "fetch_failed"
		if api.NotFound(res.Err) {
			status = fiber.StatusNotFound
			code = "resource_not_found"
		}
		return c.Status(status).JSON(fiber.Map{
			"error":  code,
			"state":  res.State.String(),
			"detail": res.Err.Error(),
		})
	default:
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"kind":  key,
			"name":  name,
			"state": loader.SlotPending.String(),
		})
	}
}

// listing 处理 GET /api/:kind。已有完整列表时返回 200，否则启动列表拉取并返回 202。
// ?refresh=1 在已有结果时也会重新拉取，期间仍返回旧结果。
func (h *catalogHandler) listing(c fiber.Ctx) error {
	key := normalize(c.Params("kind"))
	listing, err := h.dex.Listing(key)
	if err != nil {
		return renderDexError(c, err)
	}

	names, ready := listing.Names()
	if !ready || truthy(c.Query("refresh")) {
		listing.Request()
	}
	if !ready {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"kind":    key,
			"state":   loader.SlotPending.String(),
			"fetched": listing.Fetched(),
		})
	}
	return c.JSON(fiber.Map{
		"kind":      key,
		"count":     len(names),
		"names":     names,
		"in_flight": listing.InFlight(),
	})
}

func renderDexError(c fiber.Ctx, err error) error {
	if errors.Is(err, dex.ErrUnknownKind) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "kind_not_found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
