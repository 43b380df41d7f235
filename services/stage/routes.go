// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stage

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all stage routes with the router group.
//
// Endpoints:
//
//	POST /v1/stage/draft - Submit audio, create a draft at revision 0
//	GET  /v1/stage/state - Current draft + change log snapshot
//	POST /v1/stage/patch - Apply a natural-language instruction
//	POST /v1/stage/preset - Load the hand-crafted demo preset
//	POST /v1/stage/visual - Generate the wardrobe concept image
//	GET  /v1/stage/health - Health check
//	GET  /v1/stage/ws - Websocket state push
//
// Example:
//
//	svc := stage.NewService(stage.DefaultServiceConfig())
//	handlers := stage.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	stage.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	st := rg.Group("/stage")
	{
		st.POST("/draft", handlers.HandleSubmitAudio)
		st.GET("/state", handlers.HandleGetState)
		st.POST("/patch", handlers.HandleApplyPatch)
		st.POST("/preset", handlers.HandleLoadPreset)
		st.POST("/visual", handlers.HandleGenerateVisual)
		st.GET("/health", handlers.HandleHealth)
		st.GET("/ws", handlers.HandleWebsocket)
	}
}
