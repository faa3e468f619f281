package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const statusCheckTimeout = 5 * time.Second

// ComponentStatus reports one dependency in the connection check.
type ComponentStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by the connection check.
type StatusResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components"`
}

// Health answers liveness checks. It is served at /health, outside the
// documented /api/v1 base path.
func (h *ApplicationHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"message": "voxnote gateway is healthy",
	})
}

// Status godoc
// @Summary Connection check
// @Description Checks that the identity provider, the transcripts table and the processing backend are reachable.
// @Tags health
// @Produce  json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} StatusResponse
// @Router /status [get]
func (h *ApplicationHandler) Status(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), statusCheckTimeout)
	defer cancel()

	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"auth", h.Auth.Ping},
		{"database", h.History.Ping},
		{"backend", h.AIClient.Health},
	}

	components := make([]ComponentStatus, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		i, check := i, check
		wg.Add(1)
		go func() {
			defer wg.Done()
			components[i] = ComponentStatus{Name: check.name, OK: true}
			if err := check.ping(ctx); err != nil {
				components[i].OK = false
				components[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()

	resp := StatusResponse{Status: "connected", Components: components}
	for _, comp := range components {
		if !comp.OK {
			resp.Status = "error"
			h.Logger.WithField("component", comp.Name).WithField("error", comp.Error).Warn("Connection check failed")
		}
	}
	if resp.Status != "connected" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
