// Package api contains the swagger documentation of the API.
//
// The document is registered with swag so that gin-swagger can serve it under
// /docs. Host, base path and version are set by the router at startup.
package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {"tags": ["General"], "summary": "API root", "responses": {"200": {"description": "OK"}}},
            "options": {"tags": ["General"], "summary": "Allowed HTTP verbs", "responses": {"204": {"description": "No Content"}}}
        },
        "/healthz": {
            "get": {"tags": ["General"], "summary": "Get health", "responses": {"204": {"description": "No Content"}, "500": {"description": "Internal Server Error"}}},
            "options": {"tags": ["General"], "summary": "Allowed HTTP verbs", "responses": {"204": {"description": "No Content"}}}
        },
        "/version": {
            "get": {"tags": ["General"], "summary": "API version", "responses": {"200": {"description": "OK"}}},
            "options": {"tags": ["General"], "summary": "Allowed HTTP verbs", "responses": {"204": {"description": "No Content"}}}
        },
        "/v1": {
            "get": {"tags": ["v1"], "summary": "v1 API", "responses": {"200": {"description": "OK"}}},
            "options": {"tags": ["v1"], "summary": "Allowed HTTP verbs", "responses": {"204": {"description": "No Content"}}}
        },
        "/v1/sessions": {
            "get": {"tags": ["Sessions"], "summary": "List sessions", "parameters": [
                {"type": "string", "description": "Glob pattern for the name", "name": "name", "in": "query"},
                {"type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                {"type": "string", "description": "Filter by kind", "name": "kind", "in": "query"},
                {"type": "integer", "description": "The offset of the first Session returned", "name": "offset", "in": "query"},
                {"type": "integer", "description": "Maximum number of Sessions to return", "name": "limit", "in": "query"}
            ], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}},
            "post": {"tags": ["Sessions"], "summary": "Create session", "parameters": [
                {"type": "string", "description": "Admin key", "name": "X-Admin-Key", "in": "header", "required": true}
            ], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}}
        },
        "/v1/sessions/{id}": {
            "get": {"tags": ["Sessions"], "summary": "Get session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/v1/sessions/{id}/activate": {
            "post": {"tags": ["Sessions"], "summary": "Activate session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/v1/sessions/{id}/phase2": {
            "post": {"tags": ["Sessions"], "summary": "Start phase 2", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/v1/sessions/{id}/close": {
            "post": {"tags": ["Sessions"], "summary": "Close session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/v1/sessions/{id}/participants": {
            "post": {"tags": ["Sessions"], "summary": "Join session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "X-Participant-ID", "in": "header", "required": true}], "responses": {"201": {"description": "Created"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}}
        },
        "/v1/sessions/{id}/votes/me": {
            "get": {"tags": ["Votes"], "summary": "Get own vote", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "X-Participant-ID", "in": "header", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/v1/sessions/{id}/result": {
            "get": {"tags": ["Results"], "summary": "Get result", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}
        },
        "/v1/sessions/{id}/result/recompute": {
            "post": {"tags": ["Results"], "summary": "Recompute result", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/v1/sessions/{id}/proposals": {
            "get": {"tags": ["Proposals"], "summary": "List proposals", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Proposals"], "summary": "Create proposal", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/v1/sessions/{id}/ballots": {
            "post": {"tags": ["Proposals"], "summary": "Cast ballot", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/v1/votes": {
            "post": {"tags": ["Votes"], "summary": "Submit vote", "parameters": [{"type": "string", "name": "X-Participant-ID", "in": "header", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/v1/termination": {
            "post": {"tags": ["Termination"], "summary": "Poll termination", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
