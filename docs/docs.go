// Package docs registers the swagger spec consumed by
// gofiber/swagger's handler. Hand-authored in the shape swag generate
// produces; the handlers carry no swag annotations, so the spec below
// is maintained by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"swagger": "2.0",
	"info": {
		"title": "{{.Title}}",
		"description": "{{escape .Description}}",
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/api/upload/": {
			"post": {
				"tags": ["upload"],
				"summary": "Create a resumable upload",
				"responses": {"201": {"description": "created"}}
			},
			"options": {
				"tags": ["upload"],
				"summary": "Advertise TUS protocol capabilities",
				"responses": {"204": {"description": "no content"}}
			}
		},
		"/api/upload/{id}": {
			"patch": {
				"tags": ["upload"],
				"summary": "Append bytes to a resumable upload",
				"parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
				"responses": {"204": {"description": "no content"}}
			},
			"head": {
				"tags": ["upload"],
				"summary": "Query a resumable upload's progress",
				"parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
				"responses": {"200": {"description": "ok"}}
			},
			"delete": {
				"tags": ["upload"],
				"summary": "Terminate a resumable upload",
				"parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
				"responses": {"204": {"description": "no content"}}
			}
		}
	}
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "tusflow",
	Description:      "Resumable upload server implementing TUS 1.0.0 with multipart parallelization.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
