package middlewares

import (
	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"

	// swaggerAssets is where the docs page loads swagger-ui-dist from.
	swaggerAssets = "https://unpkg.com/swagger-ui-dist@5/"

	// The docs page runs one inline bootstrap script and fetches the spec
	// from this origin; swagger-ui draws its icons as data: images.
	docsCSP = "default-src 'none'; base-uri 'none'; frame-ancestors 'none'; form-action 'none'" +
		"; script-src 'unsafe-inline' " + swaggerAssets +
		"; style-src 'unsafe-inline' " + swaggerAssets +
		"; img-src 'self' data:" +
		"; connect-src 'self'"
)

// SecurityHeaders sets the hardening headers. Only the HTML page served at
// docsPage gets the relaxed policy; every other path, including the raw
// OpenAPI document, gets the API one.
func SecurityHeaders(docsPage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if c.Request.URL.Path == docsPage {
			h.Set("Content-Security-Policy", docsCSP)
		} else {
			h.Set("Content-Security-Policy", apiCSP)
		}
		c.Next()
	}
}
