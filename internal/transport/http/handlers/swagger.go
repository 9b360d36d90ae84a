package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/albrthuynh/NBAIQ/internal/transport/http/docs"
)

// DocsPath serves the profile API's Swagger UI and doc.json.
const DocsPath = "/docs"

// RegisterSwagger mounts the Swagger UI. host overrides the documented host when set.
func RegisterSwagger(r gin.IRouter, host string) {
	if host != "" {
		docs.SwaggerInfo.Host = host
	}
	r.GET(DocsPath+"/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName()),
		ginSwagger.DocExpansion("none"),
	))
}
