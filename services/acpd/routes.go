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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all ACP daemon routes with the router.
//
// Description:
//
//	Registers all /v1/acp/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Query Endpoints:
//
//	GET  /v1/acp/files/*path - FileEntry for one indexed file
//	GET  /v1/acp/locks/:level - Paths with a lock level
//	GET  /v1/acp/domains/:domain - Paths in a domain
//	GET  /v1/acp/symbols/:name - Symbol matches by exact name
//	GET  /v1/acp/primer - Bounded primer (global or domain-scoped)
//	GET  /v1/acp/bootstrap - Fixed-ceiling bootstrap line
//	GET  /v1/acp/stats - Snapshot statistics
//
// Index Lifecycle:
//
//	POST /v1/acp/reindex - Scan, build, and swap the snapshot
//
// Archive Endpoints:
//
//	GET  /v1/acp/snapshots - Archived snapshot metadata, newest first
//	GET  /v1/acp/snapshots/:commit - Full archived cache by commit
//
// Health:
//
//	GET  /v1/acp/health - Health check
//
// Example:
//
//	svc, _ := acpd.NewService(acpd.Config{Root: root})
//	handlers := acpd.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	acpd.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	acp := rg.Group("/acp")
	{
		// Queries over the published snapshot
		acp.GET("/files/*path", handlers.HandleGetFile)
		acp.GET("/locks/:level", handlers.HandleGetLock)
		acp.GET("/domains/:domain", handlers.HandleGetDomain)
		acp.GET("/symbols/:name", handlers.HandleGetSymbol)

		// Primer surfaces
		acp.GET("/primer", handlers.HandleGetPrimer)
		acp.GET("/bootstrap", handlers.HandleGetBootstrap)
		acp.GET("/stats", handlers.HandleGetStats)

		// Index lifecycle
		acp.POST("/reindex", handlers.HandleReindex)

		// Snapshot archive
		acp.GET("/snapshots", handlers.HandleListSnapshots)
		acp.GET("/snapshots/:commit", handlers.HandleGetSnapshot)

		// Health check
		acp.GET("/health", handlers.HandleHealth)
	}
}
