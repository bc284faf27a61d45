package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/document"
	"github.com/pathakanu/healthGenie/internal/session"
)

// multipartOverhead leaves room for boundaries and part headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

type chatRequest struct {
	Message string `json:"message"`
}

// POST /api/chat
func (h *Handler) ApiChat(ctx *gin.Context) {
	var req chatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	reply, err := h.Assistant.Chat(ctx.Request.Context(), session.ID(ctx), req.Message)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, reply, 1, nil)
}

// GET /api/chat/history
func (h *Handler) ApiChatHistory(ctx *gin.Context) {
	messages, err := h.Assistant.History(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, messages, int64(len(messages)), nil)
}

// POST /api/documents
func (h *Handler) ApiUploadDocument(ctx *gin.Context) {
	limit := h.Config.MaxUploadBytes
	if limit > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit+multipartOverhead)
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(ctx, document.ErrFileTooLarge)
			return
		}
		h.errorHandler(ctx, http.StatusBadRequest, fmt.Errorf("missing upload field \"file\": %w", err))
		return
	}
	if limit > 0 && header.Size > limit {
		h.fail(ctx, fmt.Errorf("%w: %d bytes", document.ErrFileTooLarge, header.Size))
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(ctx, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	var reader io.Reader = f
	if limit > 0 {
		reader = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		h.fail(ctx, fmt.Errorf("read upload: %w", err))
		return
	}

	summary, err := h.Documents.Summarize(ctx.Request.Context(), session.ID(ctx), document.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, summary, 1, nil)
}

// GET /api/documents
func (h *Handler) ApiListDocuments(ctx *gin.Context) {
	docs, err := h.Documents.List(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, docs, int64(len(docs)), nil)
}
