package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/session"
	"github.com/ibdm-project/ibdm/pkg/store"
)

// turnRequest is the body of POST /sessions/:id/turn.
type turnRequest struct {
	Utterance string `json:"utterance"`
}

// turnResponse reports what the engine said and the resulting dialogue
// state summary, not the full Information State — a host inspecting every
// field should use GET /sessions/:id/state instead.
type turnResponse struct {
	Utterances []string `json:"utterances"`
	Issues     int      `json:"open_issues"`
	QUDTop     string   `json:"qud_top,omitempty"`
}

// stateResponse summarizes an Information State for GET /sessions/:id/state.
type stateResponse struct {
	ID          string                      `json:"id"`
	Status      session.Status              `json:"status"`
	Issues      []dialogueact.Question      `json:"issues"`
	QUD         []dialogueact.Question      `json:"qud"`
	Commitments []dialogueact.Proposition   `json:"commitments"`
	Actions     int                         `json:"pending_actions"`
	Error       string                      `json:"error,omitempty"`
}

// registerRoutes wires the demo harness's minimal HTTP surface (spec §6 CLI
// surface): POST /sessions/:id/turn and GET /sessions/:id/state, plus a
// health endpoint reporting pool load and, when persistence is configured,
// snapshot store connectivity.
func registerRoutes(router *gin.Engine, mgr *session.Manager, pool *session.Pool, snapshots *store.Store) {
	router.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status": "healthy",
			"pool":   pool.Health().String(),
		}

		if snapshots != nil {
			reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			dbHealth, err := snapshots.Health(reqCtx)
			if err != nil {
				health["status"] = "degraded"
				health["store_error"] = err.Error()
			} else {
				health["store"] = dbHealth
			}
		}

		c.JSON(http.StatusOK, health)
	})

	router.POST("/sessions/:id/turn", func(c *gin.Context) {
		id := c.Param("id")

		var req turnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, utterances, err := pool.Submit(c.Request.Context(), id, req.Utterance)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		if snapshots != nil {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := snapshots.Save(saveCtx, id, state); err != nil {
				c.Error(err)
			}
			cancel()
		}

		resp := turnResponse{Utterances: utterances, Issues: len(state.Private.Issues)}
		if top, ok := state.TopQUD(); ok {
			resp.QUDTop = top.Predicate
		}
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/sessions/:id/state", func(c *gin.Context) {
		id := c.Param("id")

		sess, err := mgr.Get(id)
		if err != nil {
			if snapshots == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}

			loadCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			loaded, loadErr := snapshots.Load(loadCtx, id)
			cancel()
			if loadErr != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}

			c.JSON(http.StatusOK, stateResponse{
				ID:          id,
				Issues:      loaded.Private.Issues,
				QUD:         loaded.Shared.QUD,
				Commitments: loaded.Shared.Commitments,
				Actions:     len(loaded.Private.Actions),
			})
			return
		}

		snap := sess.Snapshot()
		state := sess.State()
		c.JSON(http.StatusOK, stateResponse{
			ID:          id,
			Status:      snap.Status,
			Issues:      state.Private.Issues,
			QUD:         state.Shared.QUD,
			Commitments: state.Shared.Commitments,
			Actions:     len(state.Private.Actions),
			Error:       snap.Error,
		})
	})

	router.DELETE("/sessions/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := mgr.Delete(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
