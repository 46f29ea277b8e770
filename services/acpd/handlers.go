// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acpd

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/acp/pkg/validation"
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
)

// Handlers contains the HTTP handlers for the ACP daemon.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// when the caller did not send it, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// engine fetches the published snapshot or writes a 503 and returns nil.
func (h *Handlers) engine(c *gin.Context, logger *slog.Logger) *query.Engine {
	eng, err := h.svc.Engine()
	if err != nil {
		logger.Warn("No snapshot published yet")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "no index published; run POST /v1/acp/reindex or 'acp index'",
			Code:  "NO_INDEX",
		})
		return nil
	}
	return eng
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Indexed: h.svc.Indexed(),
	})
}

// HandleGetFile handles GET /v1/acp/files/*path.
//
// Description:
//
//	Returns the FileEntry for one indexed file. The wildcard segment is
//	the project-relative path, e.g. /v1/acp/files/auth/login.go.
//
// Response:
//
//	200 OK: cache.FileEntry
//	400 Bad Request: Empty path
//	404 Not Found: Path not indexed
//	503 Service Unavailable: No snapshot published
func (h *Handlers) HandleGetFile(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetFile")

	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		logger.Warn("Missing file path")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "file path is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}
	if err := validation.ValidateRelPath(path); err != nil {
		logger.Warn("Rejected file path", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_PATH",
		})
		return
	}

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	entry, err := eng.LookupFile(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "FILE_NOT_FOUND",
			})
			return
		}

		logger.Error("File lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "QUERY_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// HandleGetLock handles GET /v1/acp/locks/:level.
//
// Response:
//
//	200 OK: LockResponse (paths may be empty)
//	400 Bad Request: Unknown lock level
//	503 Service Unavailable: No snapshot published
func (h *Handlers) HandleGetLock(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetLock")

	level := c.Param("level")

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	paths, err := eng.LookupByLockLevel(c.Request.Context(), scanner.LockLevel(level))
	if err != nil {
		logger.Warn("Invalid lock level", "level", level)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_LOCK_LEVEL",
		})
		return
	}

	c.JSON(http.StatusOK, LockResponse{
		Level: level,
		Paths: paths,
		Count: len(paths),
	})
}

// HandleGetDomain handles GET /v1/acp/domains/:domain.
//
// Unknown domains are not errors; they return an empty path list.
func (h *Handlers) HandleGetDomain(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetDomain")

	domain := c.Param("domain")

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	paths := eng.LookupByDomain(c.Request.Context(), domain)

	c.JSON(http.StatusOK, DomainResponse{
		Domain: domain,
		Paths:  paths,
		Count:  len(paths),
	})
}

// HandleGetSymbol handles GET /v1/acp/symbols/:name.
//
// Unknown symbols are not errors; they return an empty match list.
func (h *Handlers) HandleGetSymbol(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSymbol")

	name := c.Param("name")

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	matches := eng.LookupSymbol(c.Request.Context(), name)

	c.JSON(http.StatusOK, SymbolsResponse{
		Name:    name,
		Matches: matches,
		Count:   len(matches),
	})
}

// HandleGetPrimer handles GET /v1/acp/primer.
//
// Query Parameters:
//
//	domain: Scope the primer to one domain (optional).
//	max_length: Character budget, must be positive (optional, default 2048).
//
// Response:
//
//	200 OK: PrimerResponse
//	400 Bad Request: Invalid max_length
//	503 Service Unavailable: No snapshot published
func (h *Handlers) HandleGetPrimer(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetPrimer")

	var params PrimerQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "max_length must be a positive integer",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	primer := eng.GeneratePrimer(c.Request.Context(), query.PrimerOptions{
		Domain:    params.Domain,
		MaxLength: params.MaxLength,
	})

	c.JSON(http.StatusOK, PrimerResponse{
		Text:      primer.Text,
		Domain:    primer.Domain,
		MaxLength: primer.MaxLength,
		Truncated: primer.Truncated,
		Dropped:   primer.Dropped,
	})
}

// HandleGetBootstrap handles GET /v1/acp/bootstrap.
//
// Always succeeds: without a published snapshot the bootstrap line
// says there is no index and names the command that creates one.
func (h *Handlers) HandleGetBootstrap(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, BootstrapResponse{Text: h.svc.Bootstrap()})
}

// HandleGetStats handles GET /v1/acp/stats.
func (h *Handlers) HandleGetStats(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetStats")

	eng := h.engine(c, logger)
	if eng == nil {
		return
	}

	c.JSON(http.StatusOK, eng.Stats(c.Request.Context()))
}

// HandleReindex handles POST /v1/acp/reindex.
//
// Description:
//
//	Runs the scan+build pipeline against the configured root and
//	atomically swaps the published snapshot. Requests in flight keep
//	serving from the snapshot they started with.
//
// Response:
//
//	200 OK: ReindexResponse
//	409 Conflict: A reindex is already running
//	500 Internal Server Error: Scan or persistence failure
func (h *Handlers) HandleReindex(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReindex")

	logger.Info("Reindex requested", "root", h.svc.Root())

	resp, err := h.svc.Reindex(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrReindexInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "REINDEX_IN_PROGRESS",
			})
			return
		}

		logger.Error("Reindex failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "REINDEX_FAILED",
		})
		return
	}

	logger.Info("Reindex complete",
		"files_indexed", resp.FilesIndexed,
		"warnings", len(resp.Warnings),
		"duration_ms", resp.DurationMs)

	c.JSON(http.StatusOK, resp)
}

// HandleListSnapshots handles GET /v1/acp/snapshots.
//
// Response:
//
//	200 OK: SnapshotsResponse (newest first)
//	503 Service Unavailable: Archive not configured
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListSnapshots")

	archive := h.svc.Archive()
	if archive == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrArchiveDisabled.Error(),
			Code:  "ARCHIVE_DISABLED",
		})
		return
	}

	metas, err := archive.List(c.Request.Context())
	if err != nil {
		logger.Error("Snapshot list failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ARCHIVE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, SnapshotsResponse{
		Snapshots: metas,
		Count:     len(metas),
	})
}

// HandleGetSnapshot handles GET /v1/acp/snapshots/:commit.
//
// Description:
//
//	Returns the full archived cache for a commit. Abbreviated commit
//	hashes resolve when unambiguous.
//
// Response:
//
//	200 OK: cache.Cache
//	400 Bad Request: Ambiguous commit prefix
//	404 Not Found: No snapshot for the commit
//	503 Service Unavailable: Archive not configured
func (h *Handlers) HandleGetSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSnapshot")

	archive := h.svc.Archive()
	if archive == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrArchiveDisabled.Error(),
			Code:  "ARCHIVE_DISABLED",
		})
		return
	}

	commit, err := validation.SanitizeCommitPrefix(c.Param("commit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_COMMIT",
		})
		return
	}

	snapshot, err := archive.Get(c.Request.Context(), commit)
	if err != nil {
		switch {
		case errors.Is(err, badgerstore.ErrSnapshotNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "SNAPSHOT_NOT_FOUND",
			})
		case errors.Is(err, badgerstore.ErrAmbiguousCommit):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "AMBIGUOUS_COMMIT",
			})
		default:
			logger.Error("Snapshot read failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  "ARCHIVE_FAILED",
			})
		}
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
