package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"archelon-assistant-be/internal/dto"
	"archelon-assistant-be/internal/pkg/serverutils"
	"archelon-assistant-be/internal/service"
	"archelon-assistant-be/pkg/fault"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Stream(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post(":sessionId/stream", c.Stream)
	h.Get(":sessionId/history", c.History)
}

// Stream answers one question over SSE. Each token event is written as
// "id: <seq>\nevent: <type>\ndata: <json>\n\n"; the stream ends after exactly
// one done or error event.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fault.Validation("invalid session id")
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fault.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// The body stream writer runs after this handler returns, so the pipeline
	// gets its own context. Cancelling it aborts the in-flight generation when
	// the client disconnects.
	streamCtx, cancel := context.WithCancel(context.Background())

	st, err := c.service.Stream(streamCtx, userId, sessionId, req.Message)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for ev := range st.Events() {
			data, merr := json.Marshal(ev)
			if merr != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
			if ferr := w.Flush(); ferr != nil {
				// Client gone. Cancel generation and keep draining so the
				// producer can terminate the stream.
				cancel()
				for range st.Events() {
				}
				return
			}
		}
	}))

	return nil
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fault.Validation("invalid session id")
	}

	res, err := c.service.History(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}
