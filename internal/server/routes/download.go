package routes

import (
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/dex"
	"github.com/pkdex/pkdex/internal/task"
)

// downloadSlot 保存当前的完整下载任务；同一时刻至多一个。
type downloadSlot struct {
	mu      sync.Mutex
	current *task.Task[*dex.Snapshot, error]
	errors  []string
}

// RegisterDownloadRoutes 暴露 POST /-/download（启动完整下载）与
// GET /-/download（轮询进度或结果）。
func RegisterDownloadRoutes(app *fiber.App, d *dex.Dex, workers int, logger logrus.FieldLogger) {
	if app == nil || d == nil {
		return
	}
	slot := &downloadSlot{}

	app.Post("/-/download", func(c fiber.Ctx) error {
		slot.mu.Lock()
		defer slot.mu.Unlock()

		if slot.current != nil && !slot.current.Done() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "download_in_progress"})
		}
		next, err := d.Download(dex.DownloadOptions{Workers: workers})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "download_rejected", "message": err.Error()})
		}
		slot.current = next
		slot.errors = nil
		if logger != nil {
			logger.WithField("action", "download_requested").Info("full download started")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"state": "pending"})
	})

	app.Get("/-/download", func(c fiber.Ctx) error {
		slot.mu.Lock()
		defer slot.mu.Unlock()

		if slot.current == nil {
			return c.JSON(fiber.Map{"state": "not_started"})
		}

		result, progress := slot.current.TryFinish()
		slot.errors = append(slot.errors, encodeErrors(progress.Errors)...)
		if result == nil {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"state":     "pending",
				"message":   progress.Message,
				"completed": progress.Completed,
				"total":     progress.Total,
				"errors":    slot.errors,
			})
		}

		slot.errors = append(slot.errors, encodeErrors(slot.current.DrainErrors())...)
		snap := *result
		return c.JSON(fiber.Map{
			"state":      "done",
			"run_id":     snap.RunID,
			"loaded":     snap.Loaded(),
			"failed":     snap.Failed,
			"elapsed_ms": snap.Elapsed.Milliseconds(),
			"errors":     slot.errors,
		})
	})
}
