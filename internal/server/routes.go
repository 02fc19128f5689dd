package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/duploctl/internal/auth"
	"github.com/danmuck/duploctl/internal/hub"
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/command"
)

var ErrUnknownName = errors.New("unknown name")

type motorRequest struct {
	Port  *int `json:"port"`
	Speed *int `json:"speed"`
}

type soundRequest struct {
	Port    *int   `json:"port"`
	SoundID *int   `json:"sound_id"`
	Sound   string `json:"sound"`
}

type lightRequest struct {
	Port    *int   `json:"port"`
	ColorID *int   `json:"color_id"`
	Color   string `json:"color"`
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		ready := s.ready()
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ports", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"configured": s.train.Ports(),
			"attached":   s.train.AttachedPorts(),
		})
	})

	r.GET("/toothbrush", func(c *gin.Context) {
		if s.wearable == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "toothbrush bridge disabled"})
			return
		}
		ev, ok := s.wearable.Last()
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state": ev.State.String(),
			"mode":  ev.Mode.String(),
			"event": ev,
		})
	})

	if s.events != nil {
		r.GET("/events", func(c *gin.Context) {
			s.events.ServeWS(c.Writer, c.Request)
		})
	}

	cmd := r.Group("/")
	if s.auth != nil {
		cmd.Use(auth.Require(s.auth))
	}
	cmd.POST("/motor", s.handleMotor)
	cmd.POST("/sound", s.handleSound)
	cmd.POST("/light", s.handleLight)
	cmd.POST("/stop", func(c *gin.Context) {
		s.respond(c, "stop", s.train.Stop(c.Request.Context()))
	})
	cmd.POST("/brake", func(c *gin.Context) {
		s.respond(c, "brake", s.train.Brake(c.Request.Context()))
	})
}

func (s *Server) handleMotor(c *gin.Context) {
	var req motorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Speed == nil {
		badRequest(c, fmt.Errorf("speed is required"))
		return
	}
	speed := *req.Speed
	if speed != int(command.SpeedBrake) && (speed < -int(command.SpeedMax) || speed > int(command.SpeedMax)) {
		badRequest(c, protocol.RangeError{Field: "speed", Value: int64(speed), Min: -100, Max: 100})
		return
	}
	port, err := portOr(req.Port, s.train.Ports().Motor)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.respond(c, "motor", s.train.SetMotorSpeed(c.Request.Context(), port, int16(speed)))
}

func (s *Server) handleSound(c *gin.Context) {
	var req soundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := idOrName("sound_id", req.SoundID, req.Sound, command.LookupSound)
	if err != nil {
		badRequest(c, err)
		return
	}
	port, err := portOr(req.Port, s.train.Ports().Speaker)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.respond(c, "sound", s.train.PlaySound(c.Request.Context(), port, id))
}

func (s *Server) handleLight(c *gin.Context) {
	var req lightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := idOrName("color_id", req.ColorID, req.Color, command.LookupColor)
	if err != nil {
		badRequest(c, err)
		return
	}
	port, err := portOr(req.Port, s.train.Ports().Light)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.respond(c, "light", s.train.SetLight(c.Request.Context(), port, id))
}

func (s *Server) respond(c *gin.Context, action string, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "action": action})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hub.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, protocol.ErrOutOfRange), errors.Is(err, protocol.ErrInvalidVariant):
		status = http.StatusBadRequest
	}
	log.Error().Str("service", s.ID).Str("action", action).Err(err).Msg("train command failed")
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func portOr(port *int, fallback uint8) (uint8, error) {
	if port == nil {
		return fallback, nil
	}
	return protocol.Uint8Value("port", *port)
}

func idOrName(field string, id *int, name string, lookup func(string) (uint8, bool)) (uint8, error) {
	if id != nil {
		return protocol.Uint8Value(field, *id)
	}
	if name == "" {
		return 0, fmt.Errorf("%s or name is required", field)
	}
	v, ok := lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return v, nil
}
