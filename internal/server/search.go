package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apantall-runway/ai-chatbot/internal/search"
	"github.com/apantall-runway/ai-chatbot/internal/store"
	"github.com/apantall-runway/ai-chatbot/internal/stream"
)

var searchTracer = otel.Tracer("ai-chatbot/internal/server/search")

// SearchHandler exposes the search-and-summarize tool over HTTP: one route
// to invoke a call, one SSE route to follow a conversation's event channel,
// and one to fetch a persisted terminal result for page reloads.
type SearchHandler struct {
	Tool   *search.Tool
	Hub    *stream.Hub
	Store  *store.Store
	Logger *log.Logger
}

type searchRequest struct {
	Queries []string `json:"queries"`
}

// Register mounts the handler's routes on the given group.
func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("/chat/:conversation_id/search", h.create)
	g.GET("/chat/:conversation_id/stream", h.streamEvents)
	g.GET("/calls/:call_id", h.getCall)
}

func (h *SearchHandler) create(c echo.Context) error {
	ctx, span := searchTracer.Start(c.Request().Context(), "SearchHandler.create")
	defer span.End()

	conversationID := c.Param("conversation_id")
	if strings.TrimSpace(conversationID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id required")
	}
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	queries := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		if strings.TrimSpace(q) != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "queries must contain at least one non-empty string")
	}
	span.SetAttributes(attribute.Int("query_count", len(queries)))

	res, err := h.Tool.Run(ctx, conversationID, queries)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, search.ErrEmptyQueryBatch) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// streamEvents follows a conversation's event channel as Server-Sent
// Events. The full log emitted so far is replayed first, then live events
// are forwarded until the client disconnects. An optional call_id query
// parameter narrows the stream to one call.
func (h *SearchHandler) streamEvents(c echo.Context) error {
	req := c.Request()
	ctx, span := searchTracer.Start(req.Context(), "SearchHandler.streamEvents")
	defer span.End()
	c.SetRequest(req.WithContext(ctx))

	conversationID := c.Param("conversation_id")
	if strings.TrimSpace(conversationID) == "" {
		span.SetStatus(codes.Error, "conversation_id required")
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id required")
	}
	span.SetAttributes(attribute.String("conversation_id", conversationID))
	callID := strings.TrimSpace(c.QueryParam("call_id"))

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(ev stream.Event) error {
		if callID != "" && ev.Content.ToolCallID != callID {
			return nil
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("event: " + ev.Type + "\n")); err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	logWriteErr := func(err error) {
		span.RecordError(err)
		if h.Logger != nil {
			h.Logger.Printf("conversation %s: event stream write failed: %v", conversationID, err)
		}
	}

	replay, live, cancel := h.Hub.Channel(conversationID).Subscribe()
	defer cancel()
	for _, ev := range replay {
		if err := send(ev); err != nil {
			logWriteErr(err)
			return nil
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-live:
			if !ok {
				return nil
			}
			if err := send(ev); err != nil {
				logWriteErr(err)
				return nil
			}
		}
	}
}

func (h *SearchHandler) getCall(c echo.Context) error {
	ctx, span := searchTracer.Start(c.Request().Context(), "SearchHandler.getCall")
	defer span.End()

	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "call persistence not configured")
	}
	callID := c.Param("call_id")
	if strings.TrimSpace(callID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "call_id required")
	}
	span.SetAttributes(attribute.String("call_id", callID))

	res, err := h.Store.GetCallResult(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "call not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
