// Package docs registers the OpenAPI description served under /swagger.
package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/login": {
            "post": {
                "summary": "Sign in and set the session cookie",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"303": {"description": "Redirect to the preserved location"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/token": {
            "post": {
                "summary": "Issue a bearer token",
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "Token issued"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/dashboard": {"get": {"summary": "Dashboard summary", "responses": {"200": {"description": "OK"}, "302": {"description": "Not signed in"}}}},
        "/email": {
            "get": {
                "summary": "List a folder, label or the starred view",
                "parameters": [
                    {"in": "query", "name": "folder", "type": "string", "enum": ["inbox", "sent", "drafts", "archive", "trash"]},
                    {"in": "query", "name": "label", "type": "string"},
                    {"in": "query", "name": "starred", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/email/{id}": {
            "get": {"summary": "Open an email", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "delete": {"summary": "Move to trash", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/email/send": {"post": {"summary": "Send an email", "responses": {"201": {"description": "Sent"}, "400": {"description": "Invalid"}}}},
        "/email/drafts": {
            "get": {"summary": "List drafts", "responses": {"200": {"description": "OK"}}},
            "post": {"summary": "Save a draft", "responses": {"200": {"description": "Saved"}}}
        },
        "/calendar": {"get": {"summary": "List appointments", "parameters": [{"in": "query", "name": "day", "type": "string", "format": "date"}], "responses": {"200": {"description": "OK"}}}},
        "/calendar/appointments/{id}/emails": {"get": {"summary": "Emails related to an appointment", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/patients": {"get": {"summary": "Search patients", "parameters": [{"in": "query", "name": "q", "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/patients/import": {"post": {"summary": "Start a CSV patient import", "consumes": ["text/csv", "multipart/form-data"], "responses": {"202": {"description": "Import started"}}}},
        "/imports/{id}": {
            "get": {"summary": "Import progress", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"summary": "Cancel an import", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/prescriptions/{id}/pdf": {"get": {"summary": "Printable prescription", "produces": ["application/pdf"], "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "PDF document"}, "404": {"description": "Not found"}}}},
        "/notifications": {"get": {"summary": "Drain queued toasts", "responses": {"200": {"description": "OK"}}}},
        "/health": {"get": {"summary": "Dependency health", "security": [], "responses": {"200": {"description": "Healthy"}, "206": {"description": "Degraded"}}}}
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "from": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "HealthCRM API",
	Description:      "Email, calendar and CRM records for a medical practice.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
